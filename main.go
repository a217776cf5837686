package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"airbnb-survey/config"
	"airbnb-survey/models"
	"airbnb-survey/scraper/airbnb"
	"airbnb-survey/services"
	"airbnb-survey/storage"
	"airbnb-survey/utils"
)

// options holds the parsed command line. Exactly one command flag is set.
type options struct {
	dbInit          bool
	addSearchArea   string
	printSearchArea string
	addSurvey       string
	description     string
	listSurveys     bool
	listSearchArea  string
	listRoom        int64
	addRoom         int64
	printRoom       int64
	printSearch     int64
	search          int64
	fill            bool
	export          int64
	summary         int64
	survey          int64
}

var commandFlags = []string{
	"dbinit", "addsearcharea", "printsearcharea", "addsurvey", "listsurveys",
	"listsearcharea", "listroom", "addroom", "printroom", "printsearch",
	"search", "fill", "export", "summary",
}

func main() {
	var o options
	flag.BoolVar(&o.dbInit, "dbinit", false, "Create the database schema")
	flag.StringVar(&o.addSearchArea, "addsearcharea", "", "Fetch a city's search area and neighborhoods and store them")
	flag.StringVar(&o.printSearchArea, "printsearcharea", "", "Fetch and print a city's search area without storing it")
	flag.StringVar(&o.addSurvey, "addsurvey", "", "Create a survey for a stored search area")
	flag.StringVar(&o.description, "description", "", "Survey description (with -addsurvey)")
	flag.BoolVar(&o.listSurveys, "listsurveys", false, "List surveys")
	flag.StringVar(&o.listSearchArea, "listsearcharea", "", "Show neighborhood and city counts of a stored search area")
	flag.Int64Var(&o.listRoom, "listroom", 0, "Print a stored room")
	flag.Int64Var(&o.addRoom, "addroom", 0, "Fetch a room's detail page and store it")
	flag.Int64Var(&o.printRoom, "printroom", 0, "Fetch a room's detail page and print it without storing")
	flag.Int64Var(&o.printSearch, "printsearch", 0, "Fetch and print the first search page of a survey")
	flag.Int64Var(&o.search, "search", 0, "Run the search crawl for a survey")
	flag.BoolVar(&o.fill, "fill", false, "Fill listings that have no price from their detail pages")
	flag.Int64Var(&o.export, "export", 0, "Write a survey's listings to CSV")
	flag.Int64Var(&o.summary, "summary", 0, "Print a survey's summary")
	flag.Int64Var(&o.survey, "survey", 0, "Survey id (with -addroom and -fill)")
	flag.Parse()

	set := 0
	flag.Visit(func(f *flag.Flag) {
		for _, name := range commandFlags {
			if f.Name == name {
				set++
			}
		}
	})
	if set != 1 {
		fmt.Fprintln(os.Stderr, "exactly one command flag is required")
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(o))
}

func run(o options) int {
	logger := utils.NewLogger()
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return 1
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := logger.AddFile(cfg.LogFile); err != nil {
			logger.Warn("Could not open log file %s: %v", cfg.LogFile, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cfg, logger, o); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Interrupted")
			return 130
		}
		logger.Error("%v", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cfg *config.Config, logger *utils.Logger, o options) error {
	// Commands that never touch the database.
	switch {
	case o.printSearchArea != "":
		return withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			area, err := airbnb.FetchSearchArea(ctx, f, cfg.BaseURL, o.printSearchArea)
			if err != nil {
				return err
			}
			services.PrintSearchArea(os.Stdout, area)
			return nil
		})
	case o.printRoom != 0:
		return withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			l, err := airbnb.FetchListing(ctx, f, airbnb.NewExtractor(logger), cfg.BaseURL, o.printRoom, nil)
			if err != nil {
				return err
			}
			services.PrintListing(os.Stdout, l)
			return nil
		})
	}

	store, err := storage.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer store.Close()
	logger.Debug("[store] Connected to %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)

	switch {
	case o.dbInit:
		logger.Info("[store] Schema ready")
		return nil
	case o.addSearchArea != "":
		return withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			return addSearchArea(ctx, store, f, cfg, logger, o.addSearchArea)
		})
	case o.addSurvey != "":
		s, err := store.AddSurvey(ctx, o.addSurvey, o.description)
		if err != nil {
			return fmt.Errorf("add survey: %w", err)
		}
		logger.Info("Added survey %d for %s", s.ID, o.addSurvey)
		return nil
	case o.listSurveys:
		surveys, err := store.ListSurveys(ctx)
		if err != nil {
			return err
		}
		services.PrintSurveys(os.Stdout, surveys)
		return nil
	case o.listSearchArea != "":
		infos, err := store.FindSearchAreas(ctx, o.listSearchArea)
		if err != nil {
			return err
		}
		services.PrintSearchAreaInfo(os.Stdout, infos)
		return nil
	case o.listRoom != 0:
		l, err := store.GetListing(ctx, o.listRoom)
		if err != nil {
			return err
		}
		services.PrintListing(os.Stdout, l)
		return nil
	case o.addRoom != 0:
		return withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			return addRoom(ctx, store, f, cfg, logger, o.addRoom, o.survey)
		})
	case o.printSearch != 0:
		return withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			_, err := airbnb.NewSurveyor(store, f, cfg, logger).Preview(ctx, o.printSearch, os.Stdout)
			return err
		})
	case o.search != 0:
		err := withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			_, err := airbnb.NewSurveyor(store, f, cfg, logger).Run(ctx, o.search)
			return err
		})
		if err != nil {
			return err
		}
		return printSummary(ctx, store, logger, o.search)
	case o.fill:
		err := withFetcher(cfg, logger, func(f airbnb.Fetcher) error {
			_, err := airbnb.NewFiller(store, f, cfg, logger).Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if o.survey != 0 {
			return printSummary(ctx, store, logger, o.survey)
		}
		return nil
	case o.export != 0:
		return export(ctx, store, cfg, logger, o.export)
	case o.summary != 0:
		return printSummary(ctx, store, logger, o.summary)
	}
	return nil
}

// withFetcher builds the configured fetcher, runs fn and releases the
// fetcher's resources.
func withFetcher(cfg *config.Config, logger *utils.Logger, fn func(airbnb.Fetcher) error) error {
	f, err := airbnb.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := f.(io.Closer); ok {
		defer c.Close()
	}
	return fn(f)
}

func addSearchArea(ctx context.Context, store storage.Store, f airbnb.Fetcher, cfg *config.Config, logger *utils.Logger, city string) error {
	area, err := airbnb.FetchSearchArea(ctx, f, cfg.BaseURL, city)
	if err != nil {
		return err
	}
	if len(area.Neighborhoods) == 0 {
		logger.Info("No neighborhoods found for %s", city)
	}
	id, created, err := store.AddSearchArea(ctx, area, city)
	if err != nil {
		return fmt.Errorf("add search area %q: %w", area.Name, err)
	}
	if !created {
		logger.Info("Search area already exists: %s (id %d)", area.Name, id)
		return nil
	}
	logger.Info("Added search area %s (id %d) with %d neighborhoods", area.Name, id, len(area.Neighborhoods))
	return nil
}

func addRoom(ctx context.Context, store storage.Store, f airbnb.Fetcher, cfg *config.Config, logger *utils.Logger, roomID, surveyID int64) error {
	var sid *int64
	if surveyID != 0 {
		sid = &surveyID
	}
	l, err := airbnb.FetchListing(ctx, f, airbnb.NewExtractor(logger), cfg.BaseURL, roomID, sid)
	if err != nil {
		return err
	}
	if err := store.UpsertListing(ctx, l, models.InsertOrReplace); err != nil {
		return fmt.Errorf("save room %d: %w", roomID, err)
	}
	if l.Deleted {
		logger.Info("Room %d flagged as deleted", roomID)
		return nil
	}
	logger.Info("Saved room %d", roomID)
	return nil
}

func export(ctx context.Context, store storage.Store, cfg *config.Config, logger *utils.Logger, surveyID int64) error {
	listings, err := store.SurveyListings(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("export survey %d: %w", surveyID, err)
	}

	var w storage.ListingExporter
	w, err = storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return err
	}
	if err := w.WriteListings(listings); err != nil {
		w.Close()
		return fmt.Errorf("CSV write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("Survey %d: %d listings saved to %s", surveyID, len(listings), cfg.CSVOutputPath)
	return nil
}

func printSummary(ctx context.Context, store storage.Store, logger *utils.Logger, surveyID int64) error {
	listings, err := store.SurveyListings(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("summary for survey %d: %w", surveyID, err)
	}
	svc := services.NewSummaryService(logger)
	svc.Print(os.Stdout, svc.Generate(surveyID, listings))
	return nil
}
