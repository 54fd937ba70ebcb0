package main

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/config"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator access token for local testing",
	Long: `Sign an access token with JWT_SECRET_KEY. In production operators log in
through the HRIS core, which signs with the same secret.

Example:
  facectl token --company 3f0c... --user 51d2... --role manager`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user", "", "User ID placed in the token (required)")
	tokenCmd.Flags().String("role", string(user.RoleManager), "Role: owner, manager or employee")
}

func runToken(cmd *cobra.Command, args []string) error {
	userID := mustGetString(cmd, "user")
	role := user.Role(mustGetString(cmd, "role"))

	if companyID == "" || userID == "" {
		return fmt.Errorf("--company and --user are required")
	}
	switch role {
	case user.RoleOwner, user.RoleManager, user.RoleEmployee:
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.KioskExpiration)
	token, expiresAt, err := JWTService.GenerateAccessToken(userID, companyID, role)
	if err != nil {
		return err
	}

	fmt.Println(token)
	fmt.Printf("expires %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
	return nil
}
