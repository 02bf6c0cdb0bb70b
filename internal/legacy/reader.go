package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/metrics"
)

// Record is one claimed PO with its lines.
type Record struct {
	Header domain.POHeader
	Lines  []domain.POLine
}

type candidate struct {
	po       string
	direct   decimal.NullDecimal
	indirect decimal.NullDecimal
}

// Reader walks the PRMS PO records that are waiting for approval and have
// not been extracted yet. Every yielded record has been claimed through the
// Writer, so it is owned by this caller.
type Reader struct {
	db      *sql.DB
	writer  Writer
	tables  Tables
	limiter *rate.Limiter
	now     func() time.Time
	log     *zap.Logger
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithClaimLimiter throttles claims against PRMS.
func WithClaimLimiter(l *rate.Limiter) ReaderOption {
	return func(r *Reader) { r.limiter = l }
}

// WithClock overrides the claim timestamp source.
func WithClock(now func() time.Time) ReaderOption {
	return func(r *Reader) { r.now = now }
}

// NewReader creates a reader over db. Claims go through w.
func NewReader(db *sql.DB, w Writer, library string, opts ...ReaderOption) *Reader {
	r := &Reader{
		db:     db,
		writer: w,
		tables: Tables{Library: library},
		now:    time.Now,
		log:    logger.Named("legacy.reader"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Waiting returns a single-pass sequence of claimed records. The seed is
// read up front; header, claim and lines are then handled one candidate at
// a time. A candidate without a header is skipped unclaimed, a lost claim
// is skipped silently. Any read error is yielded and ends the sequence.
//
// Cancellation is honoured between candidates only. Once a candidate is
// started its reads and claim run to completion, so a claimed PO is always
// yielded or reported.
func (r *Reader) Waiting(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		candidates, err := r.seed(ctx)
		if err != nil {
			r.log.Error("seed read failed", zap.Error(err))
			yield(Record{}, err)
			return
		}
		r.log.Info("seed read complete", zap.Int("candidates", len(candidates)))

		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				r.log.Warn("cancellation requested, stopping before next candidate", zap.String("po_number", c.po))
				yield(Record{}, err)
				return
			}
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					r.log.Warn("claim limiter wait aborted", zap.String("po_number", c.po), zap.Error(err))
					yield(Record{}, err)
					return
				}
			}

			work := context.WithoutCancel(ctx)
			header, ok, err := r.header(work, c)
			if err != nil {
				r.log.Error("header read failed", zap.String("po_number", c.po), zap.Error(err))
				yield(Record{}, err)
				return
			}
			if !ok {
				r.log.Warn("header not found, skipping", zap.String("po_number", c.po))
				continue
			}

			claimed, err := r.writer.TryClaim(work, c.po, r.now().UTC())
			if err != nil {
				metrics.LegacyClaims.WithLabelValues("error").Inc()
				r.log.Error("claim failed", zap.String("po_number", c.po), zap.Error(err))
				yield(Record{}, err)
				return
			}
			if !claimed {
				metrics.LegacyClaims.WithLabelValues("lost").Inc()
				r.log.Info("claim lost to another worker, skipping", zap.String("po_number", c.po))
				continue
			}
			metrics.LegacyClaims.WithLabelValues("claimed").Inc()

			lines, err := r.lines(work, c.po)
			if err != nil {
				r.log.Error("lines read failed after claim",
					zap.Bool("alert", true),
					zap.Bool("claimed", true),
					zap.String("po_number", c.po),
					zap.Error(err),
				)
				yield(Record{}, err)
				return
			}
			r.log.Info("PO extracted", zap.String("po_number", c.po), zap.Int("lines", len(lines)))

			if !yield(Record{Header: header, Lines: lines}, nil) {
				return
			}
		}
	}
}

func (r *Reader) seed(ctx context.Context) ([]candidate, error) {
	query := fmt.Sprintf(`select distinct P3PURCH, P3DAMNT, P3IAMNT from %s where P3STAT = '%s' and P3XDTE = 0 and P3XTIM = 0`,
		r.tables.Name("INPUL500"), domain.LegacyStatusWaiting)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query waiting seed: %w", err)
	}
	defer rows.Close()

	out := make([]candidate, 0, 256)
	for rows.Next() {
		var (
			po            sql.NullString
			dir, indirect decimal.NullDecimal
		)
		if err := rows.Scan(&po, &dir, &indirect); err != nil {
			return nil, fmt.Errorf("scan waiting seed: %w", err)
		}
		if s := trimmed(po); s != "" {
			out = append(out, candidate{po: s, direct: dir, indirect: indirect})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting seed: %w", err)
	}
	return out, nil
}

func (r *Reader) header(ctx context.Context, c candidate) (domain.POHeader, bool, error) {
	query := fmt.Sprintf(`select a.PURCH, a.VNDNO, a.HOUSE, a.BUYER, b.BMNAM as BUYERNAME,
       v.VNAME, v.VADD1, v.VADD2, v.VADD3, v.VSTAT, v.VZIPC,
       a.PODMN, a.PODDY, a.PODYR
  from %s a
  join %s v on a.VNDNO = v.VNDNO
  join %s b on a.BUYER = b.BMBUY
 where a.PURCH = ?`,
		r.tables.Name("INPOL112"), r.tables.Name("MSVMP100"), r.tables.Name("POBMP100"))

	var (
		purch, vndno, house, buyer, buyerName  sql.NullString
		vname, vadd1, vadd2, vadd3, vstat, vzip sql.NullString
		mm, dd, yy                              sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, c.po).Scan(
		&purch, &vndno, &house, &buyer, &buyerName,
		&vname, &vadd1, &vadd2, &vadd3, &vstat, &vzip,
		&mm, &dd, &yy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.POHeader{}, false, nil
	}
	if err != nil {
		return domain.POHeader{}, false, fmt.Errorf("read header po %s: %w", c.po, err)
	}

	po := trimmed(purch)
	if po == "" {
		po = c.po
	}
	return domain.POHeader{
		PoNumber:         po,
		PoDate:           decodeDate(yy, mm, dd),
		VendorNumber:     trimmed(vndno),
		VendorName:       trimmed(vname),
		VendorAddr1:      trimmed(vadd1),
		VendorAddr2:      trimmed(vadd2),
		VendorAddr3:      trimmed(vadd3),
		VendorState:      trimmed(vstat),
		VendorPostalCode: trimmed(vzip),
		BuyerCode:        trimmed(buyer),
		BuyerName:        trimmed(buyerName),
		HouseCode:        trimmed(house),
		DirectAmount:     c.direct,
		IndirectAmount:   c.indirect,
		CreatedAt:        r.now().UTC(),
	}, true, nil
}

func (r *Reader) lines(ctx context.Context, po string) ([]domain.POLine, error) {
	query := fmt.Sprintf(`select a.PURCH, a."LINE#" as LINE_NO, a.HOUSE, a.PRDNO,
       p.DESCP as ItemDescription, a.SDESC as ItemShortDescription,
       a.QUANO, a.ORDUM, a.ECOST, (a.QUANO * a.ECOST) as EstValue,
       a.RQ3MN, a.RQ3DY, a.RQ3YR, a.POIGL
  from %s a
  left join %s p on a.PRDNO = p.PRDNO
 where a.PURCH = ?
 order by a."LINE#"`,
		r.tables.Name("INPOL300"), r.tables.Name("MSPMP100"))

	rows, err := r.db.QueryContext(ctx, query, po)
	if err != nil {
		return nil, fmt.Errorf("query lines po %s: %w", po, err)
	}
	defer rows.Close()

	out := make([]domain.POLine, 0, 32)
	for rows.Next() {
		var (
			purch, house, prdno, desc, sdesc, uom, gl sql.NullString
			lineNo, mm, dd, yy                        sql.NullInt64
			qty, unit, est                            decimal.NullDecimal
		)
		if err := rows.Scan(&purch, &lineNo, &house, &prdno, &desc, &sdesc,
			&qty, &uom, &unit, &est, &mm, &dd, &yy, &gl); err != nil {
			return nil, fmt.Errorf("scan lines po %s: %w", po, err)
		}

		ext := est
		if !ext.Valid && qty.Valid && unit.Valid {
			ext = decimal.NewNullDecimal(qty.Decimal.Mul(unit.Decimal))
		}
		out = append(out, domain.POLine{
			PoNumber:             po,
			LineNumber:           int(lineNo.Int64),
			HouseCode:            trimmed(house),
			ItemNumber:           trimmed(prdno),
			ItemDescription:      trimmed(desc),
			ItemShortDescription: trimmed(sdesc),
			QuantityOrdered:      qty,
			OrderUom:             trimmed(uom),
			UnitCost:             unit,
			ExtendedCost:         ext,
			RequiredDate:         decodeDate(yy, mm, dd),
			GlAccount:            trimmed(gl),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines po %s: %w", po, err)
	}
	return out, nil
}

func trimmed(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return strings.TrimSpace(s.String)
}

func decodeDate(yy, mm, dd sql.NullInt64) *time.Time {
	if !yy.Valid || !mm.Valid || !dd.Valid {
		return nil
	}
	t, ok := DecodeYMD(int(yy.Int64), int(mm.Int64), int(dd.Int64))
	if !ok {
		return nil
	}
	return &t
}
