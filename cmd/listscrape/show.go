package main

import (
	"fmt"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/fs"
	"github.com/fwojciec/listscrape/sqlite"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	if c.RunID != "" && c.Journal == "" {
		err := listscrape.Errorf(listscrape.EINVALID, "--run requires --journal")
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(err))
		return err
	}

	store := fs.NewDatasetStore(c.Output, "")
	ds, err := store.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(err))
		return err
	}

	for _, page := range ds.Pages() {
		fmt.Fprintf(deps.Stdout, "page %d: %d items\n", page, len(ds[page]))
	}
	fmt.Fprintf(deps.Stdout, "%d items on %d pages\n", ds.Total(), len(ds))

	if c.RunID == "" {
		return nil
	}

	db := sqlite.NewDB(c.Journal)
	if err := db.Open(); err != nil {
		return fmt.Errorf("failed to open journal at %q: %w", c.Journal, err)
	}
	defer db.Close()
	journal := sqlite.NewJournal(db)

	run, err := journal.FindRunByID(deps.Ctx, c.RunID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(err))
		return err
	}
	outcomes, err := journal.FindPageOutcomes(deps.Ctx, c.RunID)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "run %s: %d items, stopped: %s\n", run.ID, run.Items, run.StopReason)
	for _, o := range outcomes {
		line := fmt.Sprintf("  page %d %s", o.Page, o.Outcome)
		switch o.Outcome {
		case listscrape.OutcomeSaved:
			line += fmt.Sprintf(" %d items %s", o.Items, o.Checksum)
		case listscrape.OutcomeFailed:
			line += ": " + o.Error
		}
		fmt.Fprintln(deps.Stdout, line)
	}
	return nil
}
