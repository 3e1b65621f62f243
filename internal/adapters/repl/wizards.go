package repl

import (
	"fmt"
	"strconv"
	"strings"

	"palm-weighbridge/internal/adapters/cli"
	"palm-weighbridge/internal/app"

	"github.com/shopspring/decimal"
)

// prompt prints label and returns the trimmed reply. ok is false when the
// operator typed "cancel".
func (c *console) prompt(label string) (reply string, ok bool) {
	fmt.Fprintf(c.out, "  %s: ", label)
	raw, _ := c.reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "cancel") {
		fmt.Fprintln(c.out, "Cancelled.")
		return "", false
	}
	return raw, true
}

// promptDecimal repeats until the reply parses as a non-negative number.
// An empty reply is accepted when optional is true and yields nil.
func (c *console) promptDecimal(label string, optional bool) (*decimal.Decimal, bool) {
	for {
		raw, ok := c.prompt(label)
		if !ok {
			return nil, false
		}
		if raw == "" && optional {
			return nil, true
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			fmt.Fprintln(c.out, "  Enter a non-negative number.")
			continue
		}
		return &d, true
	}
}

// promptRequired repeats until a non-empty reply is given.
func (c *console) promptRequired(label string) (string, bool) {
	for {
		raw, ok := c.prompt(label)
		if !ok || raw != "" {
			return raw, ok
		}
		fmt.Fprintln(c.out, "  Required.")
	}
}

// weighWizard runs an interactive laden weighing, optionally with tara.
func (c *console) weighWizard() {
	fmt.Fprintln(c.out, "New weighing. Type 'cancel' at any prompt to abort.")

	req := app.WeighInRequest{Operator: c.operator}
	var ok bool
	if req.VehicleRef, ok = c.promptRequired("Vehicle plate"); !ok {
		return
	}
	if req.SupplierRef, ok = c.promptRequired("Supplier"); !ok {
		return
	}
	if req.DriverRef, ok = c.promptRequired("Driver"); !ok {
		return
	}
	if req.DeliveryOrderRef, ok = c.prompt("Delivery order (optional)"); !ok {
		return
	}
	product, ok := c.prompt("Product [TBS]")
	if !ok {
		return
	}
	req.ProductKind = product
	if req.ProductKind == "" {
		req.ProductKind = "TBS"
	}
	if req.Bruto, ok = c.promptDecimal("Bruto kg", false); !ok {
		return
	}
	if req.Tara, ok = c.promptDecimal("Tara kg (blank if the truck returns later)", true); !ok {
		return
	}

	result, err := c.svc.WeighIn(c.ctx, req)
	if err != nil {
		fmt.Fprintf(c.out, "[REPL] Error recording weighing: %v\n", err)
		return
	}
	cli.PrintWeighing(c.out, result)
	if result.Transaction.IsPending() {
		fmt.Fprintf(c.out, "Use '/weigh-out %d --tara <kg>' when the truck returns.\n", result.Transaction.ID)
	}
}

// gradeWizard prompts for the sample size and the six composition percentages.
func (c *console) gradeWizard(idArg string) {
	id, err := strconv.Atoi(idArg)
	if err != nil || id <= 0 {
		fmt.Fprintf(c.out, "Invalid transaction id: %s\n", idArg)
		return
	}
	fmt.Fprintf(c.out, "Grading transaction %d. Percentages must add up to 100.\n", id)

	req := app.AttachGradingRequest{TransactionID: id, Operator: c.operator}
	fields := []struct {
		label string
		dst   *decimal.Decimal
	}{
		{"Total sample", &req.TotalSample},
		{"Ripe %", &req.Composition.Ripe},
		{"Unripe %", &req.Composition.Unripe},
		{"Rotten %", &req.Composition.Rotten},
		{"Loose fruit %", &req.Composition.LooseFruit},
		{"Trash %", &req.Composition.Trash},
		{"Water %", &req.Composition.Water},
	}
	for _, f := range fields {
		v, ok := c.promptDecimal(f.label, false)
		if !ok {
			return
		}
		*f.dst = *v
	}
	note, ok := c.prompt("Note (optional)")
	if !ok {
		return
	}
	req.Note = note

	result, err := c.svc.AttachGrading(c.ctx, req)
	if err != nil {
		fmt.Fprintf(c.out, "[REPL] Error saving grading: %v\n", err)
		return
	}
	cli.PrintGrading(c.out, result.Grading)
}
