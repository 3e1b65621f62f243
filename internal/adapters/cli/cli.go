package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"palm-weighbridge/internal/app"
	"palm-weighbridge/internal/core"
	"palm-weighbridge/internal/export"

	"github.com/shopspring/decimal"
)

// Usage lists the subcommands accepted by Run.
const Usage = `Usage: wbctl <command> [flags] [args]

Commands:
  weigh-in        --supplier --driver --vehicle --bruto [--product] [--tara] [--do] [--note]
  weigh-out       <id> --tara
  cancel          <id>
  show            <id | ticket>
  pending
  list            [--status] [--vehicle] [--from] [--to] [--limit]
  grade           <transaction-id> --sample --ripe --unripe --rotten --loose --trash --water [--note]
  daily           [YYYY-MM-DD] [--xlsx file | --csv file]
  monthly         <year> <month> [--xlsx file | --csv file]
  grading-report  <from> [to]
  supplier        <supplier-ref> <from> [to]
  activate        <company-code>`

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name. Weights are
// always typed: scale readings only live inside the server process.
// The operator stamped on new records is taken from WB_OPERATOR.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given\n%s", ErrUsage, Usage)
	}
	operator := os.Getenv("WB_OPERATOR")

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "weigh-in", "in":
		return weighIn(ctx, svc, rest, operator, out)

	case "weigh-out", "out":
		fs := newFlagSet(cmd)
		tara := fs.String("tara", "", "unladen weight in kg")
		id, err := parseWithID(fs, rest)
		if err != nil {
			return err
		}
		req := app.WeighOutRequest{ID: id}
		if req.Tara, err = optionalDecimal("tara", *tara); err != nil {
			return err
		}
		result, err := svc.WeighOut(ctx, req)
		if err != nil {
			return err
		}
		PrintWeighing(out, result)

	case "cancel":
		id, err := parseWithID(newFlagSet(cmd), rest)
		if err != nil {
			return err
		}
		result, err := svc.CancelWeighing(ctx, id)
		if err != nil {
			return err
		}
		PrintWeighing(out, result)

	case "show":
		if len(rest) < 1 {
			return fmt.Errorf("%w: show <id | ticket>", ErrUsage)
		}
		result, err := svc.GetWeighing(ctx, rest[0])
		if err != nil {
			return err
		}
		PrintWeighing(out, result)

	case "pending":
		result, err := svc.ListPending(ctx)
		if err != nil {
			return err
		}
		printWeighingList(out, "PENDING WEIGH-OUT", result)

	case "list", "ls":
		fs := newFlagSet(cmd)
		req := app.ListWeighingsRequest{}
		fs.StringVar(&req.Status, "status", "", "active or cancelled")
		fs.StringVar(&req.Vehicle, "vehicle", "", "vehicle plate")
		fs.StringVar(&req.From, "from", "", "first day, YYYY-MM-DD")
		fs.StringVar(&req.To, "to", "", "last day, YYYY-MM-DD")
		fs.IntVar(&req.Limit, "limit", 0, "maximum rows")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		result, err := svc.ListWeighings(ctx, req)
		if err != nil {
			return err
		}
		printWeighingList(out, "WEIGHINGS", result)

	case "grade":
		return grade(ctx, svc, rest, operator, out)

	case "daily":
		fs := newFlagSet(cmd)
		xlsxPath := fs.String("xlsx", "", "write the report to this .xlsx file")
		csvPath := fs.String("csv", "", "write the report to this .csv file")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		report, err := svc.DailyReport(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		switch {
		case *xlsxPath != "":
			return writeFile(out, *xlsxPath, func(w io.Writer) error { return export.DailyXLSX(w, report) })
		case *csvPath != "":
			return writeFile(out, *csvPath, func(w io.Writer) error { return export.DailyCSV(w, report) })
		}
		printDailyReport(out, report)

	case "monthly":
		fs := newFlagSet(cmd)
		xlsxPath := fs.String("xlsx", "", "write the report to this .xlsx file")
		csvPath := fs.String("csv", "", "write the report to this .csv file")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		if fs.NArg() < 2 {
			return fmt.Errorf("%w: monthly <year> <month>", ErrUsage)
		}
		year, err1 := strconv.Atoi(fs.Arg(0))
		month, err2 := strconv.Atoi(fs.Arg(1))
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: year and month must be integers", ErrUsage)
		}
		report, err := svc.MonthlyReport(ctx, year, month)
		if err != nil {
			return err
		}
		switch {
		case *xlsxPath != "":
			return writeFile(out, *xlsxPath, func(w io.Writer) error { return export.MonthlyXLSX(w, report) })
		case *csvPath != "":
			return writeFile(out, *csvPath, func(w io.Writer) error { return export.MonthlyCSV(w, report) })
		}
		printMonthlyReport(out, report)

	case "grading-report":
		if len(rest) < 1 {
			return fmt.Errorf("%w: grading-report <from> [to]", ErrUsage)
		}
		report, err := svc.GradingReport(ctx, rest[0], argOr(rest, 1, ""))
		if err != nil {
			return err
		}
		printGradingReport(out, report)

	case "supplier":
		if len(rest) < 2 {
			return fmt.Errorf("%w: supplier <supplier-ref> <from> [to]", ErrUsage)
		}
		report, err := svc.SupplierReport(ctx, rest[0], rest[1], argOr(rest, 2, ""))
		if err != nil {
			return err
		}
		printSupplierReport(out, report)

	case "activate":
		if len(rest) < 1 {
			return fmt.Errorf("%w: activate <company-code>", ErrUsage)
		}
		company, err := svc.ActivateCompany(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Active company: %s %s\n", company.CompanyCode, company.Name)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, Usage)
	}
	return nil
}

func weighIn(ctx context.Context, svc app.ApplicationService, args []string, operator string, out io.Writer) error {
	fs := newFlagSet("weigh-in")
	req := app.WeighInRequest{Operator: operator}
	fs.StringVar(&req.SupplierRef, "supplier", "", "supplier reference")
	fs.StringVar(&req.DriverRef, "driver", "", "driver reference")
	fs.StringVar(&req.VehicleRef, "vehicle", "", "vehicle plate")
	fs.StringVar(&req.ProductKind, "product", "TBS", "product kind")
	fs.StringVar(&req.DeliveryOrderRef, "do", "", "delivery order reference")
	fs.StringVar(&req.Note, "note", "", "free-text note")
	bruto := fs.String("bruto", "", "laden weight in kg")
	tara := fs.String("tara", "", "unladen weight in kg; completes the weighing")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if req.Bruto, err = optionalDecimal("bruto", *bruto); err != nil {
		return err
	}
	if req.Tara, err = optionalDecimal("tara", *tara); err != nil {
		return err
	}

	result, err := svc.WeighIn(ctx, req)
	if err != nil {
		return err
	}
	PrintWeighing(out, result)
	return nil
}

func grade(ctx context.Context, svc app.ApplicationService, args []string, operator string, out io.Writer) error {
	fs := newFlagSet("grade")
	fields := map[string]*string{}
	for _, name := range []string{"sample", "ripe", "unripe", "rotten", "loose", "trash", "water"} {
		fields[name] = fs.String(name, "", name+" value")
	}
	note := fs.String("note", "", "free-text note")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	values := map[string]decimal.Decimal{}
	for name, raw := range fields {
		if *raw == "" {
			return fmt.Errorf("%w: --%s is required", ErrUsage, name)
		}
		v, err := decimal.NewFromString(*raw)
		if err != nil {
			return fmt.Errorf("%w: --%s %q is not a number", ErrUsage, name, *raw)
		}
		values[name] = v
	}

	result, err := svc.AttachGrading(ctx, app.AttachGradingRequest{
		TransactionID: id,
		TotalSample:   values["sample"],
		Composition: app.CompositionInput{
			Ripe:       values["ripe"],
			Unripe:     values["unripe"],
			Rotten:     values["rotten"],
			LooseFruit: values["loose"],
			Trash:      values["trash"],
			Water:      values["water"],
		},
		Note:     *note,
		Operator: operator,
	})
	if err != nil {
		return err
	}
	PrintGrading(out, result.Grading)
	return nil
}

// ── argument helpers ─────────────────────────────────────────────────────────

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseWithID accepts the numeric ID either before or after the flags.
func parseWithID(fs *flag.FlagSet, args []string) (int, error) {
	var idArg string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		idArg, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if idArg == "" {
		idArg = fs.Arg(0)
	}
	id, err := strconv.Atoi(idArg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s needs a numeric id", ErrUsage, fs.Name())
	}
	return id, nil
}

func optionalDecimal(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: --%s %q is not a number", ErrUsage, name, raw)
	}
	return &d, nil
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}

func writeFile(out io.Writer, path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// ExitCode maps an error from Run to a process exit status: 2 for usage
// errors, 75 (EX_TEMPFAIL) for retryable contention, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	case core.IsRetryable(err):
		return 75
	default:
		return 1
	}
}
