package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/services"
)

func (a *App) pull(ctx context.Context, asJSON bool) error {
	rep, err := a.syncService.Pull(ctx)
	a.printReport(rep, asJSON)
	return err
}

func (a *App) push(ctx context.Context, asJSON bool) error {
	rep, err := a.syncService.Push(ctx)
	a.printReport(rep, asJSON)
	return err
}

func (a *App) sync(ctx context.Context, asJSON bool) error {
	rep, err := a.syncService.Sync(ctx)
	a.printReport(rep, asJSON)
	return err
}

func (a *App) status(ctx context.Context, asJSON bool) error {
	st, err := a.syncService.Status(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.out, st)
	}
	watermark := st.Watermark
	if watermark == "" {
		watermark = "never"
	}
	fmt.Fprintf(a.out, "last sync:      %s\n", watermark)
	fmt.Fprintf(a.out, "open conflicts: %d\n", st.OpenConflicts)
	for _, e := range models.SyncOrder {
		fmt.Fprintf(a.out, "%-15s %d\n", string(e)+":", st.Counts[e])
	}
	return nil
}

func (a *App) listConflicts(ctx context.Context, onlyOpen, asJSON bool) error {
	list, err := a.conflictService.List(ctx, onlyOpen)
	if err != nil {
		return err
	}
	if asJSON {
		if list == nil {
			list = []models.Conflict{}
		}
		return writeJSON(a.out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no conflicts")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTITY\tKEY\tDETECTED\tRESOLVED")
	for _, c := range list {
		resolved := c.ResolvedAt
		if resolved == "" {
			resolved = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.EntityType, c.IdentityKey, c.DetectedAt, resolved)
	}
	return w.Flush()
}

func (a *App) resolveConflict(ctx context.Context, id int64) error {
	if err := a.conflictService.Resolve(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "conflict %d resolved\n", id)
	return nil
}

// printReport writes whatever part of the report exists, also after a
// failed cycle.
func (a *App) printReport(rep *services.Report, asJSON bool) {
	if rep == nil {
		return
	}
	if asJSON {
		_ = writeJSON(a.out, rep)
		return
	}
	for _, p := range []*services.PhaseReport{rep.Pull, rep.Push} {
		if p == nil {
			continue
		}
		fmt.Fprintf(a.out, "%s:\n", p.Phase)
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  ENTITY\tINS\tUPD\tSKIP\tDUP\tCONFL\tBACKFILL\tNO-DELEGATE\tERR")
		for _, e := range p.Entities {
			c := e.Counters
			fmt.Fprintf(w, "  %s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", e.Entity, c.Inserted, c.Updated, c.Skipped,
				c.Duplicates, c.Conflicts, c.Backfilled, c.OmittedByDelegateUnresolved, c.Errors)
		}
		_ = w.Flush()
		if p.Failed != "" {
			fmt.Fprintf(a.out, "  %s rolled back; later sheets not processed\n", p.Failed)
		}
	}
	fmt.Fprintf(a.out, "remote calls: %d\n", rep.Calls)
	if rep.Watermark != "" {
		fmt.Fprintf(a.out, "watermark: %s\n", rep.Watermark)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var configHints = map[common.ConfigErrorKind]string{
	common.ConfigMissingDataset:     "set --spreadsheet-id (or --s3-bucket with --backend s3)",
	common.ConfigInvalidCredentials: "check --credentials-file or the S3 access keys",
	common.ConfigAPIDisabled:        "enable the Google Sheets API for the credentials' project",
	common.ConfigNotFound:           "the dataset does not exist or is not shared with these credentials",
	common.ConfigPermissionDenied:   "share the dataset with the service account or grant bucket access",
}

// hint returns advice for the errors a user can act on.
func hint(err error) string {
	switch {
	case errors.Is(err, common.ErrRateLimitExhausted):
		return "the remote service is rate limiting requests; try again later"
	case errors.Is(err, services.ErrCycleRunning):
		return "wait for the running cycle to finish"
	}
	if kind, ok := common.ConfigKind(err); ok {
		return configHints[kind]
	}
	return ""
}
