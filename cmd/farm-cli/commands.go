package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"unitfarm/native/fees"
	"unitfarm/sdk/go/client"
)

func parseAmount(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func newTokenCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <account>",
		Short: "Mint a bearer token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.mint(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

func newBootstrapCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the market (administrator only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newBuyCmd(opts *globalOptions) *cobra.Command {
	var referrer string
	cmd := &cobra.Command{
		Use:   "buy <value>",
		Short: "Convert value into units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Buy(cmd.Context(), referrer, value)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer bound on first conversion")
	return cmd
}

func newCompoundCmd(opts *globalOptions) *cobra.Command {
	var referrer string
	cmd := &cobra.Command{
		Use:   "compound",
		Short: "Convert accrued units into producers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Compound(cmd.Context(), referrer)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer bound on first conversion")
	return cmd
}

func newSellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sell",
		Short: "Redeem every accrued unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Sell(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newWithdrawCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "Collect the caller's pending payee share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.Withdraw(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

// amountCmd builds a read-only command that prints a single amount.
func amountCmd(opts *globalOptions, use, short string, query func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			v, err := query(c, cmd, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return err
		},
	}
}

func newBalanceCmd(opts *globalOptions) *cobra.Command {
	return amountCmd(opts, "balance <account>", "Units owned plus units accrued since the last settlement",
		func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) { return c.BalanceOf(cmd.Context(), arg) })
}

func newPendingCmd(opts *globalOptions) *cobra.Command {
	return amountCmd(opts, "pending <account>", "Value the account's units would redeem for before fees",
		func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) {
			return c.PendingRewardsOf(cmd.Context(), arg)
		})
}

func newProducersCmd(opts *globalOptions) *cobra.Command {
	return amountCmd(opts, "producers <account>", "Producer count",
		func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) { return c.ProducersOf(cmd.Context(), arg) })
}

func newBankCmd(opts *globalOptions) *cobra.Command {
	return amountCmd(opts, "bank-balance <account>", "Ledger value balance",
		func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) { return c.BankBalance(cmd.Context(), arg) })
}

func newPayeeCmd(opts *globalOptions) *cobra.Command {
	return amountCmd(opts, "payee-pending <payee>", "Fee share awaiting withdrawal",
		func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) { return c.PayeePending(cmd.Context(), arg) })
}

func newReferrerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "referrer <account>",
		Short: "Bound referrer, empty when none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ref, err := c.ReferrerOf(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ref)
			return err
		},
	}
}

func newAccountCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "account <account>",
		Short: "Full ledger record for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			acc, err := c.Account(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), acc)
		},
	}
}

func newMarketCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Pool units and held value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			m, err := c.Market(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newEstimateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Quote purchases and redemptions",
	}
	cmd.AddCommand(
		amountCmd(opts, "buy <value>", "Units a purchase of value would yield",
			func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) {
				v, err := parseAmount(arg)
				if err != nil {
					return nil, err
				}
				return c.EstimatePurchase(cmd.Context(), v)
			}),
		amountCmd(opts, "sell <units>", "Value a redemption of units would yield before fees",
			func(c *client.Client, cmd *cobra.Command, arg string) (*big.Int, error) {
				v, err := parseAmount(arg)
				if err != nil {
					return nil, err
				}
				return c.EstimateRedemption(cmd.Context(), v)
			}),
	)
	return cmd
}

func newFeesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "fees [buy|sell]",
		Short:     "Cumulative fee totals for a domain",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{fees.DomainBuy, fees.DomainSell},
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := fees.DomainBuy
			if len(args) == 1 {
				domain = args[0]
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			totals, err := c.FeeTotals(cmd.Context(), domain)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), totals)
		},
	}
}

func newParamsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Economy parameters and deployment addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.Params(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newEventsCmd(opts *globalOptions) *cobra.Command {
	var (
		account   string
		eventType string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			records, err := c.Events(cmd.Context(), account, eventType, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "only events naming this account")
	cmd.Flags().StringVar(&eventType, "type", "", "only events of this type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")
	return cmd
}
