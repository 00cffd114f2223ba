package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show security and lock state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := svc.SecurityConfig()
		if flagJSON {
			return printJSON(map[string]interface{}{
				"securityEnabled": cfg.Enabled,
				"usePasscode":     cfg.UsePasscode,
				"useBiometric":    cfg.UseBiometric,
				"autoLockMinutes": cfg.AutoLockMinutes,
				"state":           svc.SecurityState().String(),
			})
		}
		fmt.Printf("security: %v\nstate: %s\nauto-lock: %d min\n",
			cfg.Enabled, svc.SecurityState(), cfg.AutoLockMinutes)
		return nil
	},
}

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Manage passcode protection and the lock state",
}

var securitySetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Enable passcode protection and seal existing entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Re-setup rewrites every sealed entry under a new master
		// key, which needs the current one released first.
		if err := ensureUnlocked(); err != nil {
			return err
		}
		passcode, err := readSecret("New passcode: ")
		if err != nil {
			return err
		}
		if err := svc.SetupPasscode(cmd.Context(), passcode); err != nil {
			return err
		}
		fmt.Println("security enabled")
		return nil
	},
}

var securityUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the journal with the passcode",
	RunE: func(cmd *cobra.Command, args []string) error {
		passcode, err := readSecret("Passcode: ")
		if err != nil {
			return err
		}
		if err := svc.UnlockWithPasscode(passcode); err != nil {
			return err
		}
		fmt.Println("unlocked")
		return nil
	},
}

var securityLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the journal immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc.Lock()
		fmt.Println("locked")
		return nil
	},
}

var securityChangeCmd = &cobra.Command{
	Use:   "change-passcode",
	Short: "Change the passcode without re-encrypting entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := readSecret("Current passcode: ")
		if err != nil {
			return err
		}
		next, err := readSecret("New passcode: ")
		if err != nil {
			return err
		}
		if err := svc.ChangePasscode(current, next); err != nil {
			return err
		}
		fmt.Println("passcode changed")
		return nil
	},
}

var securityDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable protection, rewriting entries as plaintext",
	RunE: func(cmd *cobra.Command, args []string) error {
		passcode, err := readSecret("Passcode: ")
		if err != nil {
			return err
		}
		if err := svc.DisableSecurity(cmd.Context(), passcode); err != nil {
			return err
		}
		fmt.Println("security disabled")
		return nil
	},
}

var securityAutoLockCmd = &cobra.Command{
	Use:   "autolock <minutes>",
	Short: "Set the idle auto-lock window (0 disables)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("minutes must be a number: %w", err)
		}
		if err := svc.SetAutoLockMinutes(minutes); err != nil {
			return err
		}
		fmt.Printf("auto-lock set to %d min\n", minutes)
		return nil
	},
}

var securityBiometricCmd = &cobra.Command{
	Use:       "biometric <on|off>",
	Short:     "Enable or disable biometric unlock",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if args[0] == "on" {
			err = svc.EnableBiometric()
		} else {
			err = svc.DisableBiometric()
		}
		if err != nil {
			return err
		}
		fmt.Printf("biometric unlock %s\n", args[0])
		return nil
	},
}

func init() {
	securityCmd.AddCommand(securitySetupCmd)
	securityCmd.AddCommand(securityUnlockCmd)
	securityCmd.AddCommand(securityLockCmd)
	securityCmd.AddCommand(securityChangeCmd)
	securityCmd.AddCommand(securityDisableCmd)
	securityCmd.AddCommand(securityAutoLockCmd)
	securityCmd.AddCommand(securityBiometricCmd)
}
