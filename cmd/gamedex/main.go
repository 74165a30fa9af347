package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"gamedex/internal/app"
	"gamedex/internal/catalog"
	"gamedex/internal/compare"
	"gamedex/internal/format"
	"gamedex/internal/logging"
	"gamedex/internal/query"
	"gamedex/internal/storage"
	"gamedex/pkg/models"
	"gamedex/pkg/utils"
)

func main() {
	global := flag.NewFlagSet("gamedex", flag.ExitOnError)
	configPath := global.String("config", "", "config file path")
	apiURL := global.String("api", "", "catalog collection URL (overrides config)")
	logLevel := global.String("log-level", "", "log level (overrides config)")
	ephemeral := global.Bool("ephemeral", false, "keep favorites and comparison in memory for this run")
	if err := global.Parse(os.Args[1:]); err != nil {
		logging.Fatal().Err(err).Msg("parse flags")
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	cfg.Apply(utils.Overrides{APIURL: *apiURL, LogLevel: *logLevel, Ephemeral: *ephemeral})
	logging.Init(cfg.LoggingConfig())

	kv, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open state storage")
	}
	defer kv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(catalog.NewClient(cfg.CatalogConfig()), kv, cfg.Locale())

	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := []string{}
	if len(args) > 2 {
		rest = args[2:]
	}

	switch cmd {
	case "games":
		err = handleGames(ctx, a, cfg, sub, rest)
	case "fav":
		err = handleFavorites(ctx, a, sub, rest)
	case "compare":
		err = handleCompare(ctx, a, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		logging.Debug().Err(err).Str("command", cmd+" "+sub).Msg("command failed")
		kv.Close()
		os.Exit(1)
	}
}

func handleGames(ctx context.Context, a *app.App, cfg *utils.Config, sub string, args []string) error {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("games list", flag.ExitOnError)
		search := fs.String("search", "", "title search")
		category := fs.String("category", query.AllCategories, "category filter")
		sortBy := fs.String("sort", "title", "sort field: title|category")
		desc := fs.Bool("desc", false, "sort descending")
		asJSON := fs.Bool("json", false, "print JSON")
		_ = fs.Parse(args)

		p := a.NewPipeline(0, cfg.Query.ClearOnError, nil)
		defer p.Close()
		p.SetQuery(query.Query{
			Search:    *search,
			Category:  *category,
			SortField: query.SortField(*sortBy),
			SortDir:   direction(*desc),
		})
		p.Wait()

		st := p.State()
		if st.Err != nil {
			return st.Err
		}
		if *asJSON {
			return printJSON(st.Items)
		}
		printItems(os.Stdout, a, st.Items)
		return nil
	case "browse":
		return browse(ctx, a, cfg, os.Stdin, os.Stdout)
	case "show":
		fs := flag.NewFlagSet("games show", flag.ExitOnError)
		asJSON := fs.Bool("json", false, "print JSON")
		_ = fs.Parse(args)
		if fs.NArg() != 1 {
			return catalog.Validation("show", "usage: gamedex games show [-json] <id|slug>")
		}

		res, err := a.Detail(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		if to, ok := res.Redirect(); ok {
			fmt.Fprintf(os.Stderr, "canonical: /games/%s\n", to)
		}
		if *asJSON {
			return printJSON(res.Record)
		}
		printDetail(os.Stdout, a, res.Record)
		return nil
	default:
		return catalog.Validation("games", "usage: gamedex games <list|browse|show>")
	}
}

func handleFavorites(ctx context.Context, a *app.App, sub string, args []string) error {
	switch sub {
	case "list":
		printEntries(os.Stdout, a.Favorites.Items())
		return nil
	case "add", "toggle":
		token, err := singleArg("fav "+sub, args)
		if err != nil {
			return err
		}
		res, err := a.Detail(ctx, token)
		if err != nil {
			return err
		}
		item := res.Record.CatalogItem
		if sub == "add" && a.Favorites.Contains(item.ID) {
			fmt.Printf("%s is already a favorite\n", item.Title)
			return nil
		}
		if a.ToggleFavorite(ctx, item) {
			fmt.Printf("★ added %s\n", item.Title)
		} else {
			fmt.Printf("☆ removed %s\n", item.Title)
		}
		return nil
	case "remove":
		id, err := singleArg("fav remove", args)
		if err != nil {
			return err
		}
		if !a.Favorites.Remove(models.ID(id)) {
			return catalog.Validation("fav remove", "no favorite with id "+id)
		}
		fmt.Println("removed", id)
		return nil
	case "clear":
		a.Favorites.Clear()
		fmt.Println("favorites cleared")
		return nil
	default:
		return catalog.Validation("fav", "usage: gamedex fav <list|add|remove|toggle|clear>")
	}
}

func handleCompare(ctx context.Context, a *app.App, sub string, args []string) error {
	switch sub {
	case "list":
		printEntries(os.Stdout, a.Compare.Items())
		return nil
	case "add":
		token, err := singleArg("compare add", args)
		if err != nil {
			return err
		}
		res, err := a.Detail(ctx, token)
		if err != nil {
			return err
		}
		a.Compare.Add(res.Record.CatalogItem)
		printEntries(os.Stdout, a.Compare.Items())
		return nil
	case "remove":
		id, err := singleArg("compare remove", args)
		if err != nil {
			return err
		}
		a.Compare.Remove(models.ID(id))
		printEntries(os.Stdout, a.Compare.Items())
		return nil
	case "clear":
		a.Compare.Clear()
		fmt.Println("compare selection cleared")
		return nil
	case "href":
		href, err := a.CompareHref()
		if err != nil {
			return err
		}
		fmt.Println(href)
		return nil
	case "show":
		fs := flag.NewFlagSet("compare show", flag.ExitOnError)
		left := fs.String("a", "", "first game id or slug")
		right := fs.String("b", "", "second game id or slug")
		_ = fs.Parse(args)

		var href string
		if *left != "" || *right != "" {
			href = url.Values{"a": {*left}, "b": {*right}}.Encode()
		} else {
			h, err := a.CompareHref()
			if err != nil {
				return err
			}
			href = h
		}
		pair, rows, err := a.Comparison(ctx, href)
		if err != nil {
			return err
		}
		printComparison(os.Stdout, pair, rows)
		return nil
	default:
		return catalog.Validation("compare", "usage: gamedex compare <list|add|remove|clear|href|show>")
	}
}

// browse is an interactive list. Plain lines are search input and go
// through the debounced pipeline; lines starting with ':' are commands.
func browse(ctx context.Context, a *app.App, cfg *utils.Config, in io.Reader, out io.Writer) error {
	var (
		outMu   sync.Mutex
		current []models.CatalogItem
	)
	render := func(st query.State) {
		outMu.Lock()
		defer outMu.Unlock()
		if st.Loading {
			fmt.Fprintln(out, "… loading")
			return
		}
		if st.Err != nil {
			fmt.Fprintf(out, "! %s (:retry to try again)\n", userMessage(st.Err))
		}
		current = st.Items
		fmt.Fprintf(out, "── search=%q category=%s sort=%s %s ──\n", st.Query.Search, st.Query.Category, st.Query.SortField, st.Query.SortDir)
		printItems(out, a, st.Items)
	}

	p := a.NewPipeline(cfg.Query.Debounce, cfg.Query.ClearOnError, render)
	defer p.Close()
	p.Refresh()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	fmt.Fprintln(out, "type to search; :cat <name|all>, :sort <title|category> [asc|desc], :fav <n>, :cmp <n>, :cats, :retry, :quit")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// piped input: apply the last search before leaving
				p.FlushSearch()
				p.Wait()
				return nil
			}
			if !strings.HasPrefix(line, ":") {
				p.SetSearch(line)
				continue
			}
			fields := strings.Fields(line)
			cmd, params := fields[0], fields[1:]
			switch cmd {
			case ":quit", ":q":
				return nil
			case ":retry":
				p.Refresh()
			case ":cat":
				p.SetCategory(strings.Join(params, " "))
			case ":cats":
				cats := append([]string{query.AllCategories}, p.Categories()...)
				outMu.Lock()
				fmt.Fprintln(out, strings.Join(cats, ", "))
				outMu.Unlock()
			case ":sort":
				field, dir := "title", "asc"
				if len(params) > 0 {
					field = params[0]
				}
				if len(params) > 1 {
					dir = params[1]
				}
				p.SetSort(query.SortField(field), query.SortDirection(dir))
			case ":fav", ":cmp":
				outMu.Lock()
				item, ok := pick(current, params)
				outMu.Unlock()
				if !ok {
					fmt.Fprintln(out, "usage:", cmd, "<row number>")
					continue
				}
				var on bool
				if cmd == ":fav" {
					on = a.ToggleFavorite(ctx, item)
				} else {
					on = a.ToggleCompare(item)
				}
				fmt.Fprintf(out, "%s %s: %v\n", cmd[1:], item.Title, on)
			default:
				fmt.Fprintln(out, "unknown command", cmd)
			}
		}
	}
}

func pick(items []models.CatalogItem, params []string) (models.CatalogItem, bool) {
	if len(params) != 1 {
		return models.CatalogItem{}, false
	}
	n, err := strconv.Atoi(params[0])
	if err != nil || n < 1 || n > len(items) {
		return models.CatalogItem{}, false
	}
	return items[n-1], true
}

func direction(desc bool) query.SortDirection {
	if desc {
		return query.Desc
	}
	return query.Asc
}

func singleArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", catalog.Validation(cmd, "usage: gamedex "+cmd+" <id|slug>")
	}
	return strings.TrimSpace(args[0]), nil
}

// userMessage prefers the catalog's wording and falls back to the raw
// error for local failures such as storage or config.
func userMessage(err error) string {
	var ce *catalog.Error
	if errors.Is(err, context.Canceled) || errors.As(err, &ce) {
		return catalog.Message(err)
	}
	return err.Error()
}

func printItems(w io.Writer, a *app.App, items []models.CatalogItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no games found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, it := range items {
		mark := " "
		if a.Favorites.Contains(it.ID) {
			mark = "★"
		}
		if a.Compare.Contains(it.ID) {
			mark += "⚔"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t#%s\n", i+1, mark, it.Title, format.Text(it.Category), it.ID)
	}
	tw.Flush()
}

func printEntries(w io.Writer, entries []models.SelectionEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		extra := e.Category
		if extra == "" {
			extra = e.Slug
		}
		fmt.Fprintf(tw, "#%s\t%s\t%s\n", e.ID, e.Title, format.Text(extra))
	}
	tw.Flush()
}

func printDetail(w io.Writer, a *app.App, d *models.DetailRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Title\t%s\n", d.Title)
	fmt.Fprintf(tw, "Category\t%s\n", format.Text(d.Category))
	fmt.Fprintf(tw, "Price\t%s\n", format.Price(float64(d.Price), d.Currency, a.Locale))
	fmt.Fprintf(tw, "Platforms\t%s\n", format.Text(d.Platform))
	fmt.Fprintf(tw, "Release\t%s\n", format.Text(d.ReleaseDate))
	fmt.Fprintf(tw, "PEGI\t%s\n", format.Text(d.Pegi))
	fmt.Fprintf(tw, "Modes\t%s\n", format.List(d.Modes, " · "))
	fmt.Fprintf(tw, "Developer\t%s\n", format.Text(d.Developer))
	fmt.Fprintf(tw, "Publisher\t%s\n", format.Text(d.Publisher))
	fmt.Fprintf(tw, "Stock\t%s\n", format.Stock(float64(d.Stock)))
	fmt.Fprintf(tw, "Tags\t%s\n", format.List(d.Tags, ", "))
	fmt.Fprintf(tw, "Audio\t%s\n", format.List(d.LanguagesAudio, ", "))
	fmt.Fprintf(tw, "Text\t%s\n", format.List(d.LanguagesText, ", "))
	fmt.Fprintf(tw, "Favorite\t%v\n", a.Favorites.Contains(d.ID))
	tw.Flush()
}

func printComparison(w io.Writer, pair *compare.Pair, rows []compare.Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\t%s\n", pair.A.Title, pair.B.Title)
	fmt.Fprintf(tw, "\t%s\t%s\n", format.Text(pair.A.Category), format.Text(pair.B.Category))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Label, r.A, r.B)
	}
	tw.Flush()
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func printUsage() {
	fmt.Println("gamedex [-config file] [-api url] [-log-level level] [-ephemeral] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  games list|browse|show")
	fmt.Println("  fav list|add|remove|toggle|clear")
	fmt.Println("  compare list|add|remove|clear|href|show")
}
