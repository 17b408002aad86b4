// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stratastor/netfix/cmd/config"
	"github.com/stratastor/netfix/cmd/fix"
	"github.com/stratastor/netfix/cmd/health"
	"github.com/stratastor/netfix/cmd/serve"
	"github.com/stratastor/netfix/cmd/status"
	"github.com/stratastor/netfix/cmd/version"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netfix",
		Short: "Netfix: network configuration fixer for guests migrated to KVM",
	}

	rootCmd.AddCommand(fix.NewFixCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(health.NewHealthCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(config.NewConfigCmd())

	return rootCmd
}
