package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/internal/models"
	"github.com/pathconvert/pathconvert/internal/store"
)

const apiKeyPrefix = "pc_"

var billingStatuses = map[string]bool{
	models.BillingActive: true,
	"pending":            true,
	"frozen":             true,
	"cancelled":          true,
}

func newShopCmd(log *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Register shops and manage their billing state",
	}

	cmd.AddCommand(newShopAddCmd(log))
	cmd.AddCommand(newShopBillingCmd(log))

	return cmd
}

func newShopAddCmd(log *logrus.Logger) *cobra.Command {
	var (
		domain      string
		accessToken string
		active      bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a shop and print its API key",
		Long:  "Registers a shop with its Admin API access token (env: SHOPIFY_ACCESS_TOKEN) and prints the generated API key once.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accessToken == "" {
				accessToken = os.Getenv("SHOPIFY_ACCESS_TOKEN")
			}

			shopDomain, err := normalizeShopDomain(domain)
			if err != nil {
				return err
			}

			if accessToken == "" {
				return errors.New("--access-token or SHOPIFY_ACCESS_TOKEN is required")
			}

			ctx := cmd.Context()

			_, pool, base, err := bootstrap(ctx, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			apiKey, err := generateAPIKey()
			if err != nil {
				return err
			}

			shops := store.NewShopStore(base)

			shop, err := shops.CreateShop(ctx, shopDomain, accessToken, apiKey)
			if errors.Is(err, models.ErrDuplicateKey) {
				return fmt.Errorf("shop %s is already registered", shopDomain)
			}

			if err != nil {
				return fmt.Errorf("registering shop: %w", err)
			}

			if active {
				if err := shops.SetBillingStatus(ctx, shop.ID, models.BillingActive); err != nil {
					return fmt.Errorf("activating billing: %w", err)
				}
			}

			return printJSON(map[string]any{
				"shop_id": shop.ID,
				"domain":  shop.Domain,
				"api_key": apiKey,
				"active":  active,
			})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Shop domain, e.g. example.myshopify.com")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Shopify Admin API access token")
	cmd.Flags().BoolVar(&active, "active", false, "Mark the shop's billing as active")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

func newShopBillingCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "billing <shop-id> <status>",
		Short: "Record a shop's subscription status (active, pending, frozen, cancelled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shopID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid shop id %q: %w", args[0], err)
			}

			status := strings.ToLower(args[1])
			if !billingStatuses[status] {
				return fmt.Errorf("unknown billing status %q", args[1])
			}

			ctx := cmd.Context()

			_, pool, base, err := bootstrap(ctx, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.NewShopStore(base).SetBillingStatus(ctx, shopID, status); err != nil {
				return fmt.Errorf("recording billing status: %w", err)
			}

			return printJSON(map[string]any{"shop_id": shopID, "status": status})
		},
	}
}

// normalizeShopDomain lowercases d and strips any scheme or trailing slash.
func normalizeShopDomain(d string) (string, error) {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")

	if d == "" || strings.ContainsAny(d, "/ ?#") || !strings.Contains(d, ".") {
		return "", fmt.Errorf("invalid shop domain %q", d)
	}

	return d, nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating API key: %w", err)
	}

	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
