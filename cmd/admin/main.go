package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// backend is what the admin commands operate on.
type backend struct {
	Store storage.Storage
	Cfg   *config.Config
}

type opener func() (*backend, error)

func openPostgres() (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Storage != config.StoragePostgres {
		return nil, fmt.Errorf("admin commands need STORAGE=%s", config.StoragePostgres)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	s := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	if err := s.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &backend{Store: s, Cfg: cfg}, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage offices, officers and tokens of the grievance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAddUserCmd(open), newTokenCmd(open), newPerformanceCmd(open))
	return root
}

func newAddUserCmd(open opener) *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "add-user <role>",
		Short: "Register a citizen, stakeholder office, officer or admin",
		Long: `Registers a user. Roles: citizen, stakeholder_office,
wereda_anti_corruption, kifleketema_anti_corruption, kentiba_biro, admin.
Complaints escalated above stakeholder level are charged to the officer of
the tier with the lowest ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.Role(args[0])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[0])
			}
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			b, err := open()
			if err != nil {
				return err
			}
			u := &models.User{ID: id, Name: name, Role: role}
			if err := b.Store.SaveUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s (%s) saved as %s\n", u.ID, u.Name, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user ID (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newTokenCmd(open opener) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user_id>",
		Short: "Issue an API token for a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open()
			if err != nil {
				return err
			}
			u, err := b.Store.GetUser(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("user %s: %w", args[0], err)
			}
			if ttl == 0 {
				ttl = b.Cfg.TokenTTL
			}
			tok, err := handler.IssueToken([]byte(b.Cfg.JWTSecret), complaint.Actor{ID: u.ID, Role: u.Role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	return cmd
}

func newPerformanceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "performance <office_id> <role>",
		Short: "Print the performance record of an office as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open()
			if err != nil {
				return err
			}
			svc := complaint.NewService(b.Store, nil)
			p, err := svc.Performance(cmd.Context(), complaint.Actor{ID: "admin-cli", Role: models.RoleAdmin}, args[0], models.Role(args[1]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd(openPostgres).ExecuteContext(context.Background()); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
