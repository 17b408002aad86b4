// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratastor/netfix/internal/constants"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check Netfix server status",
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := os.Stat(constants.NetfixPIDFilePath); err == nil {
				fmt.Println("Netfix server is running")
			} else {
				fmt.Println("Netfix server is not running")
			}
		},
	}
}
