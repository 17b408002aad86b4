// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratastor/netfix/config"
	"github.com/stratastor/netfix/pkg/client"
)

func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check Netfix server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			c := client.New(client.NewConfig(fmt.Sprintf("http://localhost:%d", cfg.Server.Port)))
			ret, err := c.Health(cmd.Context())
			if err != nil {
				fmt.Println("Health check failed: ", err)
				return nil
			}
			fmt.Println(ret)
			return nil
		},
	}
}
