// Command boardctl runs operational tasks against the board database: schema
// migrations, demo seeding, admin management, imports, templates and API tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"projectboard/internal/bootstrap"
	"projectboard/internal/config"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/repository"
	"projectboard/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// runtime is what a subcommand works against.
type runtime struct {
	cfg   *config.Config
	db    *gorm.DB
	rdb   *redis.Client
	store *repository.Store
	core  *service.Core
}

func newRuntime(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *runtime {
	store := repository.NewStore(db)
	core := service.NewCore(store, nil)
	core.Flags = featureflags.NewManager(cfg.FeatureFlags)
	return &runtime{cfg: cfg, db: db, rdb: rdb, store: store, core: core}
}

func (rt *runtime) boards() *service.BoardService {
	return service.NewBoardService(rt.core, service.NewBoardAggregator(rt.core), service.NewLabelService(rt.core))
}

// opener connects the runtime. applySchema is false for migration commands.
type opener func(applySchema bool) (*runtime, error)

func openFromConfig(applySchema bool) (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	started, err := bootstrap.Start(context.Background(), cfg, bootstrap.Options{ApplySchema: applySchema})
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, started.DB, started.Redis), nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Operate the project board database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newSeedCmd(open),
		newAdminCmd(open),
		newImportCmd(open),
		newTemplateCmd(open),
		newTokenCmd(open),
		newAPICheckCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(openFromConfig).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// findUser resolves a user by numeric id or email.
func findUser(ctx context.Context, store *repository.Store, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("--user is required")
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return store.Users.FindByID(ctx, uint(id))
	}
	return store.Users.FindByEmail(ctx, ref)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
