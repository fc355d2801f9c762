package commands

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"mailmetrics-backend/lib/browser"
	"mailmetrics-backend/lib/configutil"
	acumbaapi "mailmetrics-backend/lib/platforms/acumba"
	"mailmetrics-backend/lib/ratelimit"
	acumbascrape "mailmetrics-backend/lib/scrapers/acumba"
	"mailmetrics-backend/services/harvest"

	"github.com/dgraph-io/badger/v4"
)

type ApiConfig struct {
	BaseUrl   string `json:"base_url"`
	AuthToken string `json:"auth_token"`
}

type WebConfig struct {
	Enabled     bool   `json:"enabled"`
	BaseUrl     string `json:"base_url"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	SessionFile string `json:"session_file"`
	DebuggerUrl string `json:"debugger_url"`
	Headless    bool   `json:"headless"`
}

type Config struct {
	Api ApiConfig `json:"api"`
	Web WebConfig `json:"web"`
	// CachePath holds the badger list-catalog cache; empty disables it.
	CachePath         string `json:"cache_path"`
	ListCacheTtlHours int    `json:"list_cache_ttl_hours"`
}

func (c Config) listCacheTtl() time.Duration {
	if c.ListCacheTtlHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ListCacheTtlHours) * time.Hour
}

type runtime struct {
	service harvest.Service
	api     *acumbaapi.Client
	cleanup func()
}

// setupRuntime wires the whole pipeline from config: rate-limited API
// client, optional browser scraper, optional list-catalog cache.
func setupRuntime(ctx context.Context, configPath string) (*runtime, error) {
	config, err := configutil.Load[Config](configPath)
	if err != nil {
		return nil, err
	}

	limits := ratelimit.NewRegistry()
	api, err := acumbaapi.NewClient(acumbaapi.ClientOptions{
		BaseUrl:   config.Api.BaseUrl,
		AuthToken: config.Api.AuthToken,
		Limits:    limits,
	})
	if err != nil {
		return nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var scraper harvest.Scraper
	if config.Web.Enabled {
		rod, err := browser.NewRod(ctx, browser.Config{
			DebuggerURL: config.Web.DebuggerUrl,
			Headless:    config.Web.Headless,
		})
		if err != nil {
			cleanup()
			return nil, err
		}
		cleanups = append(cleanups, func() {
			if err := rod.Close(); err != nil {
				slog.Warn("closing browser", "err", err)
			}
		})

		if config.Web.SessionFile != "" {
			restored, err := rod.RestoreSession(config.Web.SessionFile)
			if err != nil {
				slog.Warn("could not restore session state", "err", err)
			} else if restored {
				slog.Info("restored previous session state")
			}
		}

		s, err := acumbascrape.NewScraper(rod, acumbascrape.Config{
			BaseUrl:  config.Web.BaseUrl,
			Email:    config.Web.Email,
			Password: config.Web.Password,
			PersistSession: func() error {
				if config.Web.SessionFile == "" {
					return nil
				}
				return rod.SaveSession(config.Web.SessionFile)
			},
		})
		if err != nil {
			cleanup()
			return nil, err
		}
		if err := s.Login(ctx); err != nil {
			cleanup()
			return nil, err
		}
		scraper = s
	}

	var listCache *harvest.ListCatalogCache
	if config.CachePath != "" {
		cacheDb, err := badger.Open(badger.DefaultOptions(config.CachePath).WithLogger(nil))
		if err != nil {
			slog.Warn("list catalog cache unavailable", "path", config.CachePath, "err", err)
		} else {
			cleanups = append(cleanups, func() { cacheDb.Close() })
			listCache = harvest.NewListCatalogCache(cacheDb, config.listCacheTtl())
		}
	}

	service := harvest.NewService(harvest.ServiceOptions{
		API:       api,
		Scraper:   scraper,
		ListCache: listCache,
	})
	return &runtime{service: service, api: api, cleanup: cleanup}, nil
}

func parseCampaignIds(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, errors.New("campaign ids must be numeric, got " + strconv.Quote(arg))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
