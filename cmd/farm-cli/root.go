package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"unitfarm/cmd/internal/secret"
	"unitfarm/gateway/middleware"
	"unitfarm/native/common"
	"unitfarm/sdk/go/client"
)

const (
	defaultRPCURL = "http://127.0.0.1:8545"
	secretEnv     = "FARM_HMAC_SECRET"
	tokenEnv      = "FARM_TOKEN"
)

type globalOptions struct {
	rpcURL   string
	token    string
	as       string
	secret   string
	issuer   string
	audience []string
	ttl      time.Duration
	tries    uint

	secrets *secret.Source
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{secrets: secret.NewSource(secretEnv, "HMAC secret: ")}
	root := &cobra.Command{
		Use:           "farm-cli",
		Short:         "Command line client for a farmd node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.rpcURL, "rpc", defaultRPCURL, "farmd JSON-RPC endpoint")
	flags.StringVar(&opts.token, "token", os.Getenv(tokenEnv), "bearer token for state-changing calls")
	flags.StringVar(&opts.as, "as", "", "mint a token for this account using the shared secret")
	flags.StringVar(&opts.secret, "secret", "", "HMAC secret used with --as (defaults to $"+secretEnv+")")
	flags.StringVar(&opts.issuer, "issuer", "farm-local", "issuer claim used with --as")
	flags.StringSliceVar(&opts.audience, "audience", nil, "audience claims used with --as")
	flags.DurationVar(&opts.ttl, "ttl", 15*time.Minute, "lifetime of tokens minted with --as")
	flags.UintVar(&opts.tries, "tries", 3, "attempts for requests that fail in transit")

	root.AddCommand(
		newTokenCmd(opts),
		newBootstrapCmd(opts),
		newBuyCmd(opts),
		newCompoundCmd(opts),
		newSellCmd(opts),
		newWithdrawCmd(opts),
		newBalanceCmd(opts),
		newPendingCmd(opts),
		newProducersCmd(opts),
		newReferrerCmd(opts),
		newAccountCmd(opts),
		newMarketCmd(opts),
		newEstimateCmd(opts),
		newFeesCmd(opts),
		newParamsCmd(opts),
		newEventsCmd(opts),
		newBankCmd(opts),
		newPayeeCmd(opts),
	)
	return root
}

func (o *globalOptions) mint(account string) (string, error) {
	addr, err := common.ParseAddress(account)
	if err != nil {
		return "", err
	}
	if addr == ([20]byte{}) {
		return "", fmt.Errorf("account required")
	}
	key, err := o.secrets.Get(o.secret)
	if err != nil {
		return "", err
	}
	return middleware.SignToken(key, o.issuer, o.audience, addr, o.ttl)
}

func (o *globalOptions) client() (*client.Client, error) {
	token := strings.TrimSpace(o.token)
	if strings.TrimSpace(o.as) != "" {
		minted, err := o.mint(o.as)
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
		token = minted
	}
	return client.New(o.rpcURL, client.WithToken(token), client.WithMaxTries(o.tries))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
