package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fitness-pay-backend/internal/signature"
)

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print the canonical string and both candidate signatures",
		Long: `Sign a parameter set with the configured SEVENPAY_KEY under every scheme.

Useful when comparing against a signature produced by the gateway.

Examples:
  fitpay sign pid=1001 out_trade_no=FP1700000000000ABCDEF trade_status=TRADE_SUCCESS
  fitpay sign pid=1001 money=9.90 sign=0123abcd`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.SecretKey == "" {
				return fmt.Errorf("SEVENPAY_KEY is not set")
			}

			params, err := parseParams(args)
			if err != nil {
				return err
			}
			writeSignReport(cmd, signature.NewEngine(cfg.SecretKey, cfg.SignScheme), params)
			return nil
		},
	}
}

func parseParams(args []string) (signature.Params, error) {
	params := make(signature.Params, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		params[k] = v
	}
	return params, nil
}

func writeSignReport(cmd *cobra.Command, engine *signature.Engine, params signature.Params) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "canonical: %s\n", signature.Canonicalize(params))

	candidates := engine.Candidates(params)
	for _, s := range []signature.Scheme{signature.SchemeAppend, signature.SchemeAmpersandKey} {
		marker := ""
		if s == engine.Scheme() {
			marker = " (outbound)"
		}
		fmt.Fprintf(out, "%s: %s%s\n", s, candidates[s], marker)
	}

	if received, ok := params[signature.KeySign]; ok {
		if s, ok := engine.Verify(params, received); ok {
			fmt.Fprintf(out, "received sign matches %s\n", s)
		} else {
			fmt.Fprintln(out, "received sign matches no scheme")
		}
	}
}
