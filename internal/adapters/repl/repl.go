package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"palm-weighbridge/internal/adapters/cli"
	"palm-weighbridge/internal/app"
)

// Run starts the interactive operator console.
// Slash commands map onto the one-shot CLI commands; /weigh and /grade walk the
// operator through a weighing or a grading field by field. Run returns when the
// operator types /exit or input reaches EOF.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, out io.Writer, operator string) error {
	company, err := svc.ActiveCompany(ctx)
	if err != nil {
		return fmt.Errorf("load active company: %w", err)
	}

	fmt.Fprintln(out, "Weighbridge Console")
	fmt.Fprintf(out, "Company: %s %s\n", company.CompanyCode, company.Name)
	fmt.Fprintln(out, "Type /weigh to register a truck, or /help for commands.")
	fmt.Fprintln(out, strings.Repeat("-", 70))

	c := &console{ctx: ctx, svc: svc, reader: reader, out: out, operator: operator}
	for {
		fmt.Fprint(out, "\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if dispErr := c.dispatch(input); dispErr != nil {
				if errors.Is(dispErr, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				fmt.Fprintf(out, "Error: %v\n", dispErr)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

var errExit = errors.New("exit")

type console struct {
	ctx      context.Context
	svc      app.ApplicationService
	reader   *bufio.Reader
	out      io.Writer
	operator string
}

func (c *console) dispatch(input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "weigh", "w":
		c.weighWizard()
	case "grade", "g":
		if len(args) < 1 {
			fmt.Fprintln(c.out, "Usage: /grade <transaction-id>")
			return nil
		}
		c.gradeWizard(args[0])
	case "help", "h":
		printHelp(c.out)
	case "exit", "quit", "e", "q":
		return errExit
	default:
		if !strings.HasPrefix(input, "/") {
			fmt.Fprintln(c.out, "Commands start with '/'. Type /help for the list.")
			return nil
		}
		err := cli.Run(c.ctx, c.svc, tokens, c.out)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(c.out, "Unknown or incomplete command: /%s  (type /help for all commands)\n", cmd)
			return nil
		}
		return err
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Interactive:")
	fmt.Fprintln(out, "  /weigh                      register a truck step by step")
	fmt.Fprintln(out, "  /grade <id>                 enter the sorting result for a weighing")
	fmt.Fprintln(out, "Everything else takes the same arguments as wbctl, with a leading slash:")
	for _, line := range strings.Split(cli.Usage, "\n")[3:] {
		fmt.Fprintln(out, "  /"+strings.TrimSpace(line))
	}
	fmt.Fprintln(out, "  /exit")
}
