package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/internal/infrastructure/persistence/file"
	"github.com/coursework/storehub/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND TABLE
// ══════════════════════════════════════════════════════════════════════════════

// command - одна подкоманда CLI.
type command struct {
	name    string
	args    string
	summary string
	minArgs int
	maxArgs int
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"encode", "<seed> <text>", "encode text with a seed in [0, 999999]", 2, 2, runEncode},
	{"decode", "<seed> <text>", "decode text produced by encode", 2, 2, runDecode},
	{"save", "[file]", "save inventory records read from stdin", 0, 1, runSave},
	{"load", "[file]", "print the inventory records stored in a file", 0, 1, runLoad},
	{"list", "[file]", "print item cards", 0, 1, runList},
	{"add", "<file> <id> <name> <price> <buy-price> <restock> [business] [description]", "add an item", 6, 8, runAdd},
	{"sell", "<file> <id> <n>", "sell n units and print the profit", 3, 3, runSell},
	{"restock", "[file]", "refill every item to its restock amount", 0, 1, runRestock},
	{"low", "[file]", "list items at or below the low-stock threshold", 0, 1, runLow},
	{"snapshot", "[file]", "store the inventory in the snapshot history", 0, 1, runSnapshot},
	{"history", "[limit]", "list stored snapshots, newest first", 0, 1, runHistory},
	{"restore", "<file> [digest]", "write a stored snapshot to file (latest by default)", 1, 2, runRestore},
	{"enroll", "<number> <name> <assignments>", "enroll a student", 3, 3, runEnroll},
	{"mark", "<number> <assignment> <mark>", "record a mark, -1 clears it", 3, 3, runMark},
	{"average", "<number>", "print a student's average", 1, 1, runAverage},
	{"class-average", "", "print the class average", 0, 0, runClassAverage},
	{"migrate", "[up|down|status]", "manage the database schema", 0, 1, runMigrate},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (c command) checkArgs(args []string) error {
	if len(args) < c.minArgs || len(args) > c.maxArgs {
		return usageErrorf("usage: storehub %s %s", c.name, c.args)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: storehub <command> [arguments]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s %s\t%s\n", c.name, c.args, c.summary)
	}
	_ = tw.Flush()
}

// ══════════════════════════════════════════════════════════════════════════════
// CODEC
// ══════════════════════════════════════════════════════════════════════════════

func runEncode(_ context.Context, a *app, args []string) error {
	seed, err := parseSeed(args[0])
	if err != nil {
		return err
	}
	c, err := a.codec()
	if err != nil {
		return err
	}
	out, err := c.Encode(args[1], seed)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, out)
	return nil
}

func runDecode(_ context.Context, a *app, args []string) error {
	seed, err := parseSeed(args[0])
	if err != nil {
		return err
	}
	c, err := a.codec()
	if err != nil {
		return err
	}
	out, err := c.Decode(args[1], seed)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, out)
	return nil
}

func parseSeed(s string) (int32, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > file.MaxSeed {
		return 0, usageErrorf("seed must be an integer in [0, %d], got %q", file.MaxSeed, s)
	}
	return int32(n), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INVENTORY
// ══════════════════════════════════════════════════════════════════════════════

func (a *app) path(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return a.cfg.Storage.InventoryPath
}

// loadOrEmpty читает файл склада; отсутствующий файл - пустой склад.
func (a *app) loadOrEmpty(ctx context.Context, path string) error {
	if _, err := a.inventory.Load(ctx, path); err != nil && !shared.IsNotFound(err) {
		return err
	}
	return nil
}

func (a *app) saveAndReport(ctx context.Context, path string) error {
	res, err := a.inventory.Save(ctx, path)
	if err != nil {
		return err
	}
	if res.Encoded {
		fmt.Fprintf(a.out, "saved %d items to %s (seed %06d)\n", res.Items, res.Path, res.Seed)
	} else {
		fmt.Fprintf(a.out, "saved %d items to %s\n", res.Items, res.Path)
	}
	return nil
}

func runSave(ctx context.Context, a *app, args []string) error {
	text, err := io.ReadAll(a.in)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if _, err := a.inventory.Import(ctx, string(text)); err != nil {
		return err
	}
	return a.saveAndReport(ctx, a.path(args, 0))
}

func runLoad(ctx context.Context, a *app, args []string) error {
	if _, err := a.inventory.Load(ctx, a.path(args, 0)); err != nil {
		return err
	}
	text, err := a.inventory.Export()
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.out, text)
	return err
}

func runList(ctx context.Context, a *app, args []string) error {
	if _, err := a.inventory.Load(ctx, a.path(args, 0)); err != nil {
		return err
	}
	printItems(a.out, a.inventory.Items())
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	path := args[0]
	price, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return usageErrorf("price must be a number, got %q", args[3])
	}
	buyPrice, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		return usageErrorf("buy price must be a number, got %q", args[4])
	}
	restock, err := strconv.Atoi(args[5])
	if err != nil {
		return usageErrorf("restock amount must be an integer, got %q", args[5])
	}

	params := inventory.NewItemParams{
		ID:            args[1],
		Name:          args[2],
		Price:         price,
		BuyPrice:      buyPrice,
		RestockAmount: restock,
	}
	if len(args) > 6 {
		params.Business = args[6]
	}
	if len(args) > 7 {
		params.Description = args[7]
	}

	if err := a.loadOrEmpty(ctx, path); err != nil {
		return err
	}
	if _, err := a.inventory.Add(ctx, params); err != nil {
		return err
	}
	return a.saveAndReport(ctx, path)
}

func runSell(ctx context.Context, a *app, args []string) error {
	path := args[0]
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return usageErrorf("quantity must be an integer, got %q", args[2])
	}

	if _, err := a.inventory.Load(ctx, path); err != nil {
		return err
	}
	profit, err := a.inventory.Sell(ctx, args[1], n)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "profit: %s\n", profit)
	return a.saveAndReport(ctx, path)
}

func runRestock(ctx context.Context, a *app, args []string) error {
	path := a.path(args, 0)
	if _, err := a.inventory.Load(ctx, path); err != nil {
		return err
	}
	changed, err := a.inventory.Restock(ctx)
	if err != nil {
		return err
	}
	for _, r := range changed {
		fmt.Fprintf(a.out, "%s: %d -> %d\n", r.ID, r.OldStock, r.NewStock)
	}
	return a.saveAndReport(ctx, path)
}

func runLow(ctx context.Context, a *app, args []string) error {
	if _, err := a.inventory.Load(ctx, a.path(args, 0)); err != nil {
		return err
	}
	printItems(a.out, a.inventory.LowStock())
	return nil
}

func printItems(w io.Writer, items []*inventory.Item) {
	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, item.String())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

func runSnapshot(ctx context.Context, a *app, args []string) error {
	if _, err := a.inventory.Load(ctx, a.path(args, 0)); err != nil {
		return err
	}
	snap, created, err := a.inventory.Snapshot(ctx)
	if err != nil {
		return err
	}
	state := "unchanged"
	if created {
		state = "stored"
	}
	fmt.Fprintf(a.out, "%s %s (%d items)\n", state, snap.Digest, snap.Items)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	limit := a.cfg.Storage.SnapshotHistory
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usageErrorf("limit must be a positive integer, got %q", args[0])
		}
		limit = n
	}

	snaps, err := a.inventory.History(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tDIGEST\tITEMS\tENCODED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", s.CreatedAt.Format("2006-01-02 15:04:05"), s.Digest, s.Items, s.Encoded)
	}
	return tw.Flush()
}

func runRestore(ctx context.Context, a *app, args []string) error {
	digest := ""
	if len(args) > 1 {
		digest = args[1]
	}
	snap, err := a.inventory.Restore(ctx, digest)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "restored %s\n", snap.Digest)
	return a.saveAndReport(ctx, args[0])
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE BOOK
// ══════════════════════════════════════════════════════════════════════════════

func runEnroll(ctx context.Context, a *app, args []string) error {
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return usageErrorf("assignments must be an integer, got %q", args[2])
	}
	gb, err := a.requireGradebook()
	if err != nil {
		return err
	}
	s, err := gb.Enroll(ctx, args[1], args[0], n)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "enrolled %s (%s) with %d assignments\n", s.Name, s.Number, len(s.Marks))
	return nil
}

func runMark(ctx context.Context, a *app, args []string) error {
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return usageErrorf("assignment must be an integer, got %q", args[1])
	}
	mark, err := strconv.Atoi(args[2])
	if err != nil {
		return usageErrorf("mark must be an integer, got %q", args[2])
	}
	gb, err := a.requireGradebook()
	if err != nil {
		return err
	}
	return gb.RecordMark(ctx, args[0], idx, gradebook.Mark(mark))
}

func runAverage(ctx context.Context, a *app, args []string) error {
	gb, err := a.requireGradebook()
	if err != nil {
		return err
	}
	avg, err := gb.Average(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%.2f\n", avg)
	return nil
}

func runClassAverage(ctx context.Context, a *app, _ []string) error {
	gb, err := a.requireGradebook()
	if err != nil {
		return err
	}
	avg, err := gb.ClassAverage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%.2f\n", avg)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DATABASE
// ══════════════════════════════════════════════════════════════════════════════

func runMigrate(ctx context.Context, a *app, args []string) error {
	if a.db == nil {
		return errNoDatabase
	}
	migrator := postgres.NewMigrator(a.db)

	action := "up"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "up":
		n, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "applied %d migrations\n", n)
		return nil
	case "down":
		mig, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if mig == nil {
			fmt.Fprintln(a.out, "nothing to roll back")
			return nil
		}
		fmt.Fprintf(a.out, "rolled back %d %s\n", mig.Version, mig.Name)
		return nil
	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
		for _, m := range migrations {
			applied := "-"
			if m.Applied() {
				applied = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.Name, applied)
		}
		return tw.Flush()
	default:
		return usageErrorf("usage: storehub migrate [up|down|status]")
	}
}
