package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	classifierx "github.com/planscout/planscout/agent/classifier"
	contractx "github.com/planscout/planscout/agent/contract"
	enginex "github.com/planscout/planscout/agent/engine"
	promptx "github.com/planscout/planscout/agent/prompt"
	researchx "github.com/planscout/planscout/agent/research"
	statex "github.com/planscout/planscout/agent/state"
	configx "github.com/planscout/planscout/pkg/config"
	_ "github.com/planscout/planscout/pkg/logger/autoload"
	openrouterx "github.com/planscout/planscout/pkg/openrouter"
	webhookx "github.com/planscout/planscout/pkg/webhook"
)

type AppConfig struct {
	SessionID    string `envconfig:"SESSION_ID" default:"local"`
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("")

	eng, err := buildEngine(ctx, appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	runREPL(ctx, eng, appCfg.SessionID)
}

func buildEngine(ctx context.Context, appCfg *AppConfig) (*enginex.Engine, error) {
	classifier := buildClassifier(ctx)
	researcher, sources, err := buildResearcher()
	if err != nil {
		return nil, err
	}
	store, err := buildStore(appCfg.StoreBackend)
	if err != nil {
		return nil, err
	}
	return enginex.New(store, classifier, researcher, sources, buildSink())
}

func buildClassifier(ctx context.Context) contractx.Classifier {
	rules := classifierx.NewRules()

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	if !openRouterCfg.Enabled() {
		log.Info().Msg("no openrouter api key, using rule-based classifier")
		return rules
	}

	if err := openrouterx.VerifyModel(ctx, *openRouterCfg); err != nil {
		log.Warn().Err(err).Msg("openrouter model check failed, using rule-based classifier")
		return rules
	}

	chatModel, err := openRouterCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("chat model init failed, using rule-based classifier")
		return rules
	}

	prompts := promptx.LoadPromptSet()
	llm, err := classifierx.NewLLM(ctx, chatModel, prompts.Classifier, rules)
	if err != nil {
		log.Warn().Err(err).Msg("llm classifier init failed, using rule-based classifier")
		return rules
	}
	return llm
}

func buildResearcher() (contractx.Researcher, []string, error) {
	wikiCfg := configx.MustNew[researchx.WikipediaConfig]("WIKIPEDIA")
	wiki, err := researchx.NewWikipediaAdapter(*wikiCfg)
	if err != nil {
		return nil, nil, err
	}

	adapters := []contractx.SourceAdapter{wiki}

	if siteCfg, err := configx.New[researchx.WebsiteConfig]("SCRAPINGDOG"); err == nil {
		site, aerr := researchx.NewWebsiteAdapter(*siteCfg)
		if aerr != nil {
			log.Warn().Err(aerr).Msg("website adapter disabled")
		} else {
			adapters = append(adapters, site)
		}
	} else {
		log.Info().Msg("no scrapingdog credential, website source disabled")
	}

	if newsCfg, err := configx.New[researchx.NewsConfig]("GNEWS"); err == nil {
		news, aerr := researchx.NewNewsAdapter(*newsCfg)
		if aerr != nil {
			log.Warn().Err(aerr).Msg("news adapter disabled")
		} else {
			adapters = append(adapters, news)
		}
	} else {
		log.Info().Msg("no gnews credential, news source disabled")
	}

	researchCfg := configx.MustNew[researchx.Config]("RESEARCH")
	orch, err := researchx.NewOrchestrator(*researchCfg, adapters...)
	if err != nil {
		return nil, nil, err
	}
	return orch, orch.SourceNames(), nil
}

func buildStore(backend string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore(), nil
	case "postgres":
		pgCfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(*pgCfg)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashRedisStore(*redisCfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func buildSink() contractx.EventSink {
	cfg, err := configx.New[webhookx.Config]("WEBHOOK")
	if err != nil {
		log.Warn().Err(err).Msg("webhook config load failed, sink disabled")
		return nil
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	// A webhook that is configured but unusable is a startup error, not
	// something to limp past.
	return webhookx.MustNew(*cfg)
}

func runREPL(ctx context.Context, eng *enginex.Engine, sessionID string) {
	fmt.Println("Account plan scout. Ask about a company, or type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		out, err := eng.SendUtterance(ctx, sessionID, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}
		for _, ev := range out.Events {
			fmt.Printf("  [%s] %s\n", ev.Source, ev.Stage)
		}
		fmt.Println(out.Reply)
	}

	if err := eng.EndSession(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("session teardown failed")
	}
	fmt.Println("Bye.")
}
