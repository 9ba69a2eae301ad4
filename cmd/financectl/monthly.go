package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"finance-backend/internal/expense"
	"finance-backend/internal/models"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type monthlyViewCmd struct {
	user  uint
	year  int
	month int
}

func (*monthlyViewCmd) Name() string { return "monthly-view" }
func (*monthlyViewCmd) Synopsis() string {
	return "print what a user has to pay in a month, recurring expenses included"
}
func (*monthlyViewCmd) Usage() string {
	return `financectl monthly-view -user <id> [-year <yyyy>] [-month <m>]

  Year and month default to the current month.
`
}

func (p *monthlyViewCmd) SetFlags(f *flag.FlagSet) {
	today := time.Now()
	f.UintVar(&p.user, "user", 0, "id of the user")
	f.IntVar(&p.year, "year", today.Year(), "year")
	f.IntVar(&p.month, "month", int(today.Month()), "month, 1-12")
}

func (p *monthlyViewCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.user == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	db, cfg, err := openDB()
	if err != nil {
		logrus.WithError(err).Error("connect database")
		return subcommands.ExitFailure
	}

	entries, err := expense.MonthlyView(db, p.user, p.year, p.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := printMonth(os.Stdout, p.year, p.month, entries, cfg.Currency); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printMonth(w io.Writer, year, month int, entries []expense.MonthlyEntry, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "DUE\tNAME\tTYPE\tAMOUNT\tPAID\n")
	for _, e := range entries {
		paid := "no"
		if e.Paid {
			paid = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			models.FormatDate(e.DueDate), e.Name, e.Type, expense.FormatAmount(e.Amount, currency), paid)
	}

	s := expense.Summarize(year, month, entries)
	fmt.Fprintf(tw, "\t\t\t\t\n")
	fmt.Fprintf(tw, "\tTotal\t\t%s\t\n", expense.FormatAmount(s.Total, currency))
	fmt.Fprintf(tw, "\tPaid\t\t%s\t\n", expense.FormatAmount(s.Paid, currency))
	fmt.Fprintf(tw, "\tPending\t\t%s\t\n", expense.FormatAmount(s.Pending, currency))
	return tw.Flush()
}
