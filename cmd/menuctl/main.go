// Command menuctl is the operator CLI for the menu bot: schema migration,
// tenant registration, catalog and audit inspection, and local message
// simulation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ananth-NQI/menubot-backend/internal/app"
	"github.com/Ananth-NQI/menubot-backend/internal/config"
	"github.com/Ananth-NQI/menubot-backend/internal/middleware"
	"github.com/Ananth-NQI/menubot-backend/internal/models"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
	"github.com/Ananth-NQI/menubot-backend/internal/utils"
)

func main() {
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree and binds its persistent flags to viper.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "MenuBot operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addPersistentFlags(root)
	registerCommands(root)
	return root
}

func initConfig() {
	viper.SetEnvPrefix("MENUCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().String("dsn", "", "database DSN (overrides DATABASE_DSN)")
	root.PersistentFlags().String("redis-addr", "", "redis address for the sender lock (overrides REDIS_ADDR)")
	root.PersistentFlags().Bool("memory", false, "use the in-memory store")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("log-level", "warn", "log level")
	for _, name := range []string{"dsn", "redis-addr", "memory", "json", "log-level"} {
		_ = viper.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}
}

func registerCommands(root *cobra.Command) {
	root.AddCommand(migrateCmd())
	root.AddCommand(tenantCmd())
	root.AddCommand(menuCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(simulateCmd())
}

// loadConfig reads the service configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
		cfg.Database.UseMemoryStore = false
	}
	if addr := viper.GetString("redis-addr"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if viper.GetBool("memory") {
		cfg.Database.UseMemoryStore = true
	}
	cfg.Log.Level = viper.GetString("log-level")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withComponents(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, c *app.Components) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := utils.NewLogger(cfg.Log)
	comps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(ctx, cfg, comps)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				if c.StorageKind == "memory" {
					fmt.Fprintln(cmd.OutOrStdout(), "memory store selected, nothing to migrate")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}

func tenantCmd() *cobra.Command {
	t := &cobra.Command{Use: "tenant", Short: "Manage tenants"}
	t.AddCommand(tenantAddCmd())
	t.AddCommand(tenantListCmd())
	t.AddCommand(tenantTokenCmd())
	return t
}

func tenantAddCmd() *cobra.Command {
	var (
		name   string
		phones []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a tenant and its admin WhatsApp numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return errors.New("--name required")
			}
			if len(phones) == 0 {
				return errors.New("at least one --phone required")
			}
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				tenant := &models.Tenant{Name: strings.TrimSpace(name)}
				for _, p := range phones {
					tenant.Phones = append(tenant.Phones, models.TenantPhone{Phone: p})
				}
				if err := c.Store.CreateTenant(ctx, tenant); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), tenant)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tenant %s created (%s)\n", tenant.ID, tenant.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "tenant display name")
	cmd.Flags().StringSliceVar(&phones, "phone", nil, "admin WhatsApp number (repeatable)")
	return cmd
}

func tenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				tenants, err := c.Store.ListTenants(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), tenants)
				}
				tw := newTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Phones", "Created"})
				for _, t := range tenants {
					phones := make([]string, len(t.Phones))
					for i, p := range t.Phones {
						phones[i] = p.Phone
					}
					tw.AppendRow(table.Row{t.ID, t.Name, strings.Join(phones, ", "), t.CreatedAt.Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func tenantTokenCmd() *cobra.Command {
	var (
		tenantID string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return errors.New("--tenant required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}
			token, err := middleware.NewAdminTokens(cfg.Admin.JWTSecret, cfg.Admin.JWTIssuer).Issue(tenantID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func menuCmd() *cobra.Command {
	m := &cobra.Command{Use: "menu", Short: "Inspect menu items"}
	m.AddCommand(menuListCmd())
	return m
}

func menuListCmd() *cobra.Command {
	var (
		tenantID string
		query    string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's menu items, optionally filtered by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return errors.New("--tenant required")
			}
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				items, err := c.Store.SearchByNameContains(ctx, tenantID, query, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), items)
				}
				tw := newTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Price", "Available", "Created"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Name, it.Price.StringFixed(2), it.Available, it.CreatedAt.Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&query, "query", "", "name fragment")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum items")
	return cmd
}

func auditCmd() *cobra.Command {
	a := &cobra.Command{Use: "audit", Short: "Inspect the audit log"}
	a.AddCommand(auditTailCmd())
	return a
}

func auditTailCmd() *cobra.Command {
	var (
		tenantID string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return errors.New("--tenant required")
			}
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				recs, err := c.Store.RecentAudit(ctx, tenantID, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), recs)
				}
				tw := newTable(cmd.OutOrStdout(), table.Row{"Time", "Sender", "Message", "Input", "Action", "OK", "Text"})
				for _, r := range recs {
					msgID := ""
					if r.MessageID != nil {
						msgID = *r.MessageID
					}
					tw.AppendRow(table.Row{r.CreatedAt.Format(time.DateTime), r.Sender, msgID, r.InputType, r.Action, r.Success, r.InputText})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		tenantID  string
		from      string
		text      string
		messageID string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one text message through the processor and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return errors.New("--from required")
			}
			return withComponents(cmd.Context(), func(ctx context.Context, cfg *config.Config, c *app.Components) error {
				sender := models.NormalizePhone(from)
				if tenantID == "" {
					tenant, err := c.Store.TenantByPhone(ctx, sender)
					if err != nil {
						return fmt.Errorf("resolve tenant for %s: %w", sender, err)
					}
					tenantID = tenant.ID
				}
				reply, err := c.Processor.Process(ctx, services.InboundMessage{
					TenantID:  tenantID,
					Sender:    sender,
					Text:      text,
					MessageID: messageID,
					InputType: models.InputText,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), map[string]string{"reply": reply})
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (resolved from --from when empty)")
	cmd.Flags().StringVar(&from, "from", "", "sender phone number")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringVar(&messageID, "id", "", "channel message id")
	return cmd
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(header)
	return tw
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
