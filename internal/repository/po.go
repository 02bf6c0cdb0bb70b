package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ppockey/po-approvals/internal/domain"
)

// UpsertPOHeader stages a header extracted from PRMS. A re-extracted PO goes
// back to waiting.
func (q *Queries) UpsertPOHeader(ctx context.Context, h domain.POHeader) error {
	var poDate pgtype.Date
	if h.PoDate != nil {
		poDate = pgtype.Date{Time: *h.PoDate, Valid: true}
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO po_header (
		     po_number, status, is_active, po_date, vendor_number, vendor_name, vendor_addr1, vendor_addr2, vendor_addr3,
		     vendor_state, vendor_postal_code, buyer_code, buyer_name, house_code, direct_amount, indirect_amount, created_at, updated_at
		 ) VALUES ($1, 'W', true, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		 ON CONFLICT (po_number) DO UPDATE SET
		     status = 'W', is_active = true, po_date = EXCLUDED.po_date,
		     vendor_number = EXCLUDED.vendor_number, vendor_name = EXCLUDED.vendor_name,
		     vendor_addr1 = EXCLUDED.vendor_addr1, vendor_addr2 = EXCLUDED.vendor_addr2, vendor_addr3 = EXCLUDED.vendor_addr3,
		     vendor_state = EXCLUDED.vendor_state, vendor_postal_code = EXCLUDED.vendor_postal_code,
		     buyer_code = EXCLUDED.buyer_code, buyer_name = EXCLUDED.buyer_name, house_code = EXCLUDED.house_code,
		     direct_amount = EXCLUDED.direct_amount, indirect_amount = EXCLUDED.indirect_amount,
		     updated_at = EXCLUDED.updated_at`,
		h.PoNumber, poDate, h.VendorNumber, nullText(h.VendorName), nullText(h.VendorAddr1), nullText(h.VendorAddr2),
		nullText(h.VendorAddr3), nullText(h.VendorState), nullText(h.VendorPostalCode), nullText(h.BuyerCode),
		nullText(h.BuyerName), nullText(h.HouseCode), h.DirectAmount, h.IndirectAmount, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert po header %s: %w", h.PoNumber, err)
	}
	return nil
}

// ReplacePOLines swaps the staged lines of a PO for lines.
func (q *Queries) ReplacePOLines(ctx context.Context, po string, lines []domain.POLine) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM po_line WHERE po_number = $1`, po)
	for _, l := range lines {
		var required pgtype.Date
		if l.RequiredDate != nil {
			required = pgtype.Date{Time: *l.RequiredDate, Valid: true}
		}
		batch.Queue(
			`INSERT INTO po_line (po_number, line_number, house_code, item_number, item_description, item_short_description,
			     quantity_ordered, order_uom, unit_cost, extended_cost, required_date, gl_account)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			po, l.LineNumber, nullText(l.HouseCode), nullText(l.ItemNumber), nullText(l.ItemDescription),
			nullText(l.ItemShortDescription), l.QuantityOrdered, nullText(l.OrderUom), l.UnitCost, l.ExtendedCost,
			required, nullText(l.GlAccount),
		)
	}

	br := q.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("replace lines po %s: %w", po, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("replace lines po %s: %w", po, err)
	}
	return nil
}

// SetPOStatus updates the visible status of a staged PO. A missing header is
// an error.
func (q *Queries) SetPOStatus(ctx context.Context, po string, status domain.POState) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE po_header SET status = $2, updated_at = now() WHERE po_number = $1`,
		po, string(status),
	)
	if err != nil {
		return fmt.Errorf("set po %s status: %w", po, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("set po %s status: %w", po, domain.ErrHeaderNotFound)
	}
	return nil
}

// GetCostCenterKey returns the cost center of a PO, or "" when unset or the
// header is not staged.
func (q *Queries) GetCostCenterKey(ctx context.Context, po string) (string, error) {
	var key pgtype.Text
	err := q.db.QueryRow(ctx, `SELECT cost_center_key FROM po_header WHERE po_number = $1`, po).Scan(&key)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("get cost center %s: %w", po, err)
	}
	return key.String, nil
}
