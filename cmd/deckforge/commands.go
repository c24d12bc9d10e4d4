package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckbuilder"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckimport"
	"github.com/ramonehamilton/deckforge/internal/mtga/oracle"
	"github.com/ramonehamilton/deckforge/internal/scryfall"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// openDB opens the card database, migrating it when configured to.
func (a *app) openDB() (*storage.DB, error) {
	path, err := a.cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	dbConfig := storage.DefaultConfig(path)
	dbConfig.AutoMigrate = a.cfg.Storage.AutoMigrate

	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("open card database: %w", err)
	}
	a.logger.Debug("Opened card database", zap.String("path", path))
	return db, nil
}

// newEngine builds the combo engine, plugging in the generative suggester
// when it is enabled.
func (a *app) newEngine(parser *oracle.Parser) (*combos.Engine, error) {
	opts := []combos.Option{
		combos.WithLogger(a.logger.Named("combos")),
		combos.WithParser(parser),
	}

	if a.cfg.LLM.Enabled {
		ollamaConfig, err := a.cfg.OllamaConfig()
		if err != nil {
			return nil, err
		}
		suggester := llm.NewComboSuggester(
			llm.NewOllamaClient(ollamaConfig),
			llm.WithRequestsPerMinute(a.cfg.LLM.RequestsPerMinute),
			llm.WithSuggesterLogger(a.logger.Named("llm")),
			llm.WithTemperature(a.cfg.LLM.Temperature),
		)
		opts = append(opts, combos.WithSuggester(suggester))
		a.logger.Info("Combo suggester enabled",
			zap.String("model", ollamaConfig.Model),
			zap.String("url", ollamaConfig.BaseURL))
	}

	return combos.NewEngine(a.cfg.Engine, opts...), nil
}

// resolveTargets looks up each named card in the database.
func resolveTargets(ctx context.Context, repo *storage.CardRepository, names []string) ([]*cards.Card, error) {
	targets := make([]*cards.Card, 0, len(names))
	for _, name := range names {
		card, err := repo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if card == nil {
			return nil, fmt.Errorf("card not found: %q", name)
		}
		targets = append(targets, card)
	}
	return targets, nil
}

func parseColorFlag(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return cards.ParseColors(strings.ToUpper(s))
}

func (a *app) runImport(ctx context.Context, args []string) error {
	fs := a.newFlagSet("import")
	file := fs.String("file", "", "Scryfall bulk JSON file (an array of card objects)")
	fetch := fs.Bool("fetch", false, "Download the configured Scryfall bulk file instead of reading -file")
	var named stringList
	fs.Var(&named, "card", "Fetch a single card by exact name from Scryfall (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}

	var loaded []*cards.Card
	var err error
	switch {
	case *fetch || len(named) > 0:
		loaded, err = a.fetchCards(ctx, *fetch, named)
	case *file != "":
		loaded, err = loadCardFile(*file)
	default:
		return fmt.Errorf("import requires -file, -fetch or -card")
	}
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := storage.NewCardRepository(db)
	n, err := repo.UpsertCards(ctx, loaded)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("Imported cards", zap.Int("upserted", n), zap.Int("total", total))
	fmt.Fprintf(a.out, "Imported %d cards (%d in database)\n", n, total)
	return nil
}

func loadCardFile(path string) ([]*cards.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open card file: %w", err)
	}
	defer f.Close()
	return cards.LoadScryfallJSON(f)
}

// fetchCards downloads the bulk file and/or the named cards from Scryfall.
func (a *app) fetchCards(ctx context.Context, bulk bool, names []string) ([]*cards.Card, error) {
	client := scryfall.NewClient(a.cfg.ScryfallConfig(), scryfall.WithLogger(a.logger.Named("scryfall")))

	var loaded []*cards.Card
	if bulk {
		info, err := client.BulkDataByType(ctx, a.cfg.Scryfall.BulkType)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Downloading bulk data",
			zap.String("type", info.Type),
			zap.Int64("bytes", info.Size),
			zap.Time("updated_at", info.UpdatedAt))
		if loaded, err = client.DownloadBulk(ctx, info.DownloadURI); err != nil {
			return nil, err
		}
	}

	if len(names) > 0 {
		found, notFound, err := client.CardsByName(ctx, names)
		if err != nil {
			return nil, err
		}
		if len(notFound) > 0 {
			a.logger.Warn("Cards not found on Scryfall", zap.Strings("names", notFound))
		}
		loaded = append(loaded, found...)
	}
	return loaded, nil
}

// comboFlags are shared by combos and build.
type comboFlags struct {
	targets  stringList
	colors   *string
	format   *string
	max      *int
	powerMin *int
	powerMax *int
	maxTurns *int
	maxCards *int
	creative *bool
}

func registerComboFlags(fs *flag.FlagSet) *comboFlags {
	cf := &comboFlags{}
	fs.Var(&cf.targets, "card", "Target card name (repeatable)")
	cf.colors = fs.String("colors", "", "Color identity, e.g. RG or wubrg")
	cf.format = fs.String("legal", "", "Only use cards legal in this format (e.g. commander, modern)")
	cf.max = fs.Int("max", 0, "Maximum combos per search (0 uses the configured default)")
	cf.powerMin = fs.Int("power-min", 0, "Minimum combo power level")
	cf.powerMax = fs.Int("power-max", 0, "Maximum combo power level")
	cf.maxTurns = fs.Int("max-turns", 0, "Maximum setup turns")
	cf.maxCards = fs.Int("max-cards", 0, "Maximum cards per combo")
	cf.creative = fs.Bool("creative", false, "Ask the suggester for less conventional combos")
	return cf
}

// discover runs one search per target card, or a single pool-wide scan when
// no target is named. Results are concatenated without duplicates.
func (a *app) discover(ctx context.Context, engine *combos.Engine, repo *storage.CardRepository, cf *comboFlags) ([]*combos.ComboMatch, []*cards.Card, error) {
	colors := parseColorFlag(*cf.colors)
	pool, err := repo.FetchCandidates(ctx, cards.Predicate{ColorIdentity: colors, Format: *cf.format})
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("Fetched candidate pool", zap.Int("cards", len(pool)), zap.Strings("colors", colors))

	if len(cf.targets) == 0 {
		matches, err := engine.Discover(ctx, &combos.Request{
			Colors:        colors,
			Format:        *cf.format,
			PowerMin:      *cf.powerMin,
			PowerMax:      *cf.powerMax,
			MaxSetupTurns: *cf.maxTurns,
			MaxCards:      *cf.maxCards,
			MaxResults:    *cf.max,
			CreativeMode:  *cf.creative,
		}, pool)
		return matches, pool, err
	}

	targets, err := resolveTargets(ctx, repo, cf.targets)
	if err != nil {
		return nil, nil, err
	}
	results, err := engine.DiscoverAll(ctx, targets, pool, *cf.max)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var matches []*combos.ComboMatch
	for _, found := range results {
		for _, m := range found {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			matches = append(matches, m)
		}
	}
	return matches, pool, nil
}

func (a *app) runCombos(ctx context.Context, args []string) error {
	fs := a.newFlagSet("combos")
	cf := registerComboFlags(fs)
	asJSON := fs.Bool("json", false, "Print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	parser := oracle.NewParser(a.cfg.Cache.ParserSize)
	engine, err := a.newEngine(parser)
	if err != nil {
		return err
	}

	matches, _, err := a.discover(ctx, engine, storage.NewCardRepository(db), cf)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	printCombos(a.out, matches)
	return nil
}

func (a *app) runBuild(ctx context.Context, args []string) error {
	fs := a.newFlagSet("build")
	cf := registerComboFlags(fs)
	deckFormat := fs.String("format", "singleton", "Deck format: singleton (100 cards) or multiples (60 cards), or an alias such as commander or modern")
	comboCount := fs.Int("combos", 2, "Number of discovered combos to build around")
	exportFormat := fs.String("export", string(deckexport.FormatPlainText), "Export dialect: plaintext, arena or mtgo")
	name := fs.String("name", "", "Deck name; writes <name>.txt when -out is not given")
	outPath := fs.String("out", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := deckbuilder.ParseFormat(*deckFormat)
	if err != nil {
		return err
	}
	dialect, err := parseExportFormat(*exportFormat)
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	parser := oracle.NewParser(a.cfg.Cache.ParserSize)
	engine, err := a.newEngine(parser)
	if err != nil {
		return err
	}

	matches, pool, err := a.discover(ctx, engine, storage.NewCardRepository(db), cf)
	if err != nil {
		return err
	}
	if *comboCount >= 0 && len(matches) > *comboCount {
		matches = matches[:*comboCount]
	}

	identity := parseColorFlag(*cf.colors)
	if identity == nil {
		identity = comboIdentity(matches)
	}

	builder := deckbuilder.NewBuilder(a.cfg.Deck,
		deckbuilder.WithLogger(a.logger.Named("deckbuilder")),
		deckbuilder.WithParser(parser))
	assembly, err := builder.Build(&deckbuilder.Request{
		Combos:        matches,
		ColorIdentity: identity,
		Format:        format,
		Pool:          pool,
		Legality:      *cf.format,
	})
	if err != nil {
		return err
	}

	for _, w := range assembly.Warnings {
		a.logger.Warn(w)
	}
	if err := assembly.Insufficiency(); err != nil {
		a.logger.Warn("Deck is incomplete", zap.Error(err))
	}

	entries := deckexport.EntriesFromAssembly(assembly)
	result := deckexport.Validate(entries, format)
	for _, w := range result.Warnings {
		a.logger.Warn("Validation", zap.String("warning", w))
	}

	text := deckexport.Serialize(entries, nil, &deckexport.Options{
		Format:         dialect,
		Canonical:      true,
		IncludeHeaders: true,
	})

	target := *outPath
	if target == "" && *name != "" {
		target = deckexport.Filename(*name)
	}
	if target == "" {
		_, err := fmt.Fprint(a.out, text)
		return err
	}
	if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write deck: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d cards (%d lands) to %s\n", assembly.TotalCards(), assembly.LandCount(), target)
	return nil
}

// comboIdentity is the union of the color identities of the combo pieces.
func comboIdentity(matches []*combos.ComboMatch) []string {
	var colors []string
	for _, m := range matches {
		for _, c := range m.Cards {
			colors = append(colors, c.ColorIdentity...)
		}
	}
	return cards.NormalizeColors(colors)
}

func parseExportFormat(s string) (deckexport.ExportFormat, error) {
	switch f := deckexport.ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case deckexport.FormatPlainText, deckexport.FormatArena, deckexport.FormatMTGO:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (a *app) runValidate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("validate")
	deckFormat := fs.String("format", "singleton", "Deck format or alias")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("validate requires a deck list file")
	}

	format, err := deckbuilder.ParseFormat(*deckFormat)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("read deck list: %w", err)
	}
	deck, err := deckimport.Parse(string(data))
	if err != nil {
		return err
	}
	for _, w := range deck.Warnings {
		a.logger.Warn("Import", zap.String("warning", w))
	}

	// Card lookup only improves basic land detection; validation works
	// without a database.
	if db, err := a.openDB(); err != nil {
		a.logger.Warn("Card database unavailable, skipping lookup", zap.Error(err))
	} else {
		defer db.Close()
		pool, err := storage.NewCardRepository(db).FetchCandidates(ctx, cards.Predicate{})
		if err != nil {
			return err
		}
		if missing := deck.Resolve(cards.IndexByName(pool)); len(missing) > 0 && len(pool) > 0 {
			a.logger.Warn("Cards not in database", zap.Strings("names", missing))
		}
	}

	mainboard, _ := deck.Entries()
	result := deckexport.Validate(mainboard, format)
	if result.IsValid {
		fmt.Fprintf(a.out, "Deck is valid (%d/%d cards)\n", result.TotalCards, result.ExpectedSize)
		return nil
	}
	fmt.Fprintf(a.out, "Deck is not valid (%d/%d cards):\n", result.TotalCards, result.ExpectedSize)
	for _, w := range result.Warnings {
		fmt.Fprintf(a.out, "  - %s\n", w)
	}
	return errInvalidDeck
}

func (a *app) runMigrate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("migrate requires one of: up, down, version")
	}

	path, err := a.cfg.DatabasePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	mgr, err := storage.NewMigrationManager(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			a.logger.Warn("Error closing migration manager", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		if err := mgr.Up(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Migrations applied")
	case "down":
		if err := mgr.Down(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Migrations rolled back")
	case "version", "status":
		version, dirty, err := mgr.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Schema version: %d (dirty: %t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
	return nil
}

func (a *app) runBackup(ctx context.Context, args []string) error {
	fs := a.newFlagSet("backup")
	dir := fs.String("dir", "", "Backup directory (default: backups/ next to the database)")
	list := fs.Bool("list", false, "List existing backups instead of creating one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dir == "" {
		path, err := a.cfg.DatabasePath()
		if err != nil {
			return err
		}
		*dir = filepath.Join(filepath.Dir(path), "backups")
	}

	if *list {
		backups, err := storage.ListBackups(*dir)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(a.out, "No backups found")
			return nil
		}
		for _, b := range backups {
			fmt.Fprintf(a.out, "%s  %8d bytes  %s  %s\n", b.Name, b.Size, b.ModTime.Format("2006-01-02 15:04:05"), b.Checksum[:min(12, len(b.Checksum))])
		}
		return nil
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	path, err := db.Backup(ctx, *dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Backup written to %s\n", path)
	return nil
}

func (a *app) runConfig(args []string) error {
	command := "show"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "show":
		data, err := toml.Marshal(a.cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = a.out.Write(data)
		return err
	case "init":
		if _, err := os.Stat(a.configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", a.configPath)
		}
		if err := a.cfg.SaveFile(a.configPath); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Wrote %s\n", a.configPath)
		return nil
	default:
		return fmt.Errorf("unknown config command %q", command)
	}
}

func (a *app) runLLMStatus(ctx context.Context) error {
	ollamaConfig, err := a.cfg.OllamaConfig()
	if err != nil {
		return err
	}
	status := llm.NewOllamaClient(ollamaConfig).CheckAvailability(ctx)

	fmt.Fprintf(a.out, "URL:        %s\n", ollamaConfig.BaseURL)
	fmt.Fprintf(a.out, "Available:  %t\n", status.Available)
	if status.Version != "" {
		fmt.Fprintf(a.out, "Version:    %s\n", status.Version)
	}
	fmt.Fprintf(a.out, "Model:      %s (ready: %t)\n", status.ModelName, status.ModelReady)
	if !a.cfg.LLM.Enabled {
		fmt.Fprintln(a.out, "Suggester:  disabled in config")
	}
	if status.Error != "" {
		fmt.Fprintf(a.out, "Error:      %s\n", status.Error)
	}
	return nil
}
