package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppockey/po-approvals/internal/chain"
)

// planStage is the printable form of one derived stage.
type planStage struct {
	Sequence int    `yaml:"sequence"`
	Role     string `yaml:"role"`
	Category string `yaml:"category,omitempty"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
}

type plan struct {
	Direct   string      `yaml:"direct,omitempty"`
	Indirect string      `yaml:"indirect,omitempty"`
	Stages   []planStage `yaml:"stages"`
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Approval chain tools",
	}

	var direct, indirect string
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the approver stages a PO with the given amounts would get",
		Example: `  poctl chain plan --direct 60000
  poctl chain plan --direct 150000 --indirect 1500`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writePlan(cmd.OutOrStdout(), direct, indirect)
		},
	}
	planCmd.Flags().StringVar(&direct, "direct", "", "direct amount; empty means absent")
	planCmd.Flags().StringVar(&indirect, "indirect", "", "indirect amount; empty means absent")

	cmd.AddCommand(planCmd)
	return cmd
}

func writePlan(w io.Writer, direct, indirect string) error {
	d, err := parseAmount("direct", direct)
	if err != nil {
		return err
	}
	i, err := parseAmount("indirect", indirect)
	if err != nil {
		return err
	}

	out := plan{Direct: direct, Indirect: indirect, Stages: []planStage{}}
	for _, r := range chain.Build("", d, i) {
		out.Stages = append(out.Stages, planStage{
			Sequence: r.Sequence,
			Role:     r.RoleCode,
			Category: string(r.Category),
			From:     bound(r.ThresholdFrom),
			To:       bound(r.ThresholdTo),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}

func parseAmount(name, s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("--%s: %w", name, err)
	}
	return decimal.NewNullDecimal(v), nil
}

func bound(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
