package di

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	transcriptService "github.com/reshetovitsme/discord-scribe/internal/modules/transcript/service"
	"github.com/reshetovitsme/discord-scribe/internal/shared/config"
	discordHandler "github.com/reshetovitsme/discord-scribe/internal/transport/discord"
	httpServer "github.com/reshetovitsme/discord-scribe/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

func setupTest(t *testing.T) do.Injector {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "test-token")
	t.Setenv("DISCORD_PUBLIC_KEY", "")

	injector, err := Setup()
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return injector
}

func invokedNames(injector do.Injector) []string {
	return lo.Map(injector.ListInvokedServices(), func(svc do.ServiceDescription, _ int) string {
		return svc.Service
	})
}

func TestInvoked(t *testing.T) {
	injector := setupTest(t)

	if _, ok := invoked[*config.Config](injector); ok {
		t.Fatal("config reported as built before any invocation")
	}

	do.MustInvoke[*config.Config](injector)
	cfg, ok := invoked[*config.Config](injector)
	if !ok || cfg.DiscordBotToken != "test-token" {
		t.Fatalf("invoked config = %+v, %v", cfg, ok)
	}
}

func TestShutdown_LeavesUnbuiltServicesAlone(t *testing.T) {
	injector := setupTest(t)

	// what the export command builds
	do.MustInvoke[*transcriptService.Service](injector)

	if err := Shutdown(injector); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	names := invokedNames(injector)
	for _, name := range []string{do.NameOf[*httpServer.Server](), do.NameOf[*discordHandler.Handler]()} {
		if lo.Contains(names, name) {
			t.Errorf("Shutdown built %s", name)
		}
	}
	if !lo.Contains(names, do.NameOf[*discordgo.Session]()) {
		t.Errorf("session missing from invoked services %v", names)
	}
}

func TestShutdown_StopsBuiltServices(t *testing.T) {
	injector := setupTest(t)

	do.MustInvoke[*httpServer.Server](injector)

	if err := Shutdown(injector); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
