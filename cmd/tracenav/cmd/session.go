package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tracenav/regdebug"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Review register snapshots page by page.",
	Long: `A register debugging session holds one page of register values ` +
		`per cycle. Registers can be tagged with notes that stay visible ` +
		`on the following pages, and pages are validated once reviewed.`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new RAW.json SESSION.json",
	Short: "Create a session from a raw register trace.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		session := regdebug.NewSession()

		err = session.ImportRawTrace(in)
		if err != nil {
			return err
		}

		return runSession(cmd, session, args[1], nil)
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION.json",
	Short: "Print a page of a session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, args[0], nil)
	},
}

var sessionTagCmd = &cobra.Command{
	Use:   "tag SESSION.json REGISTER CONTENT",
	Short: "Tag a register from a page on.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, args[0], func(c *regdebug.Controller) error {
			return c.AddTag(args[1], args[2])
		})
	},
}

var sessionValidateCmd = &cobra.Command{
	Use:   "validate SESSION.json",
	Short: "Toggle the validation of a page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, args[0], func(c *regdebug.Controller) error {
			return c.ToggleValidated()
		})
	},
}

func openSession(
	cmd *cobra.Command,
	filename string,
	action func(c *regdebug.Controller) error,
) error {
	in, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer in.Close()

	session := regdebug.NewSession()

	err = session.Deserialize(in)
	if err != nil {
		return fmt.Errorf("loading %s: %w", filename, err)
	}

	return runSession(cmd, session, filename, action)
}

// runSession moves to the requested page, applies the action, prints the
// page, and saves the session if it changed or moved.
func runSession(
	cmd *cobra.Command,
	session *regdebug.Session,
	filename string,
	action func(c *regdebug.Controller) error,
) error {
	view := &textView{}
	controller := regdebug.NewController(session, view)

	err := controller.Reset()
	if err != nil {
		return err
	}

	moved := cmd.Flags().Changed("page")
	if moved {
		page, _ := cmd.Flags().GetInt("page")

		err = controller.JumpTo(page)
		if err != nil {
			return err
		}
	}

	if action != nil {
		err = action(controller)
		if err != nil {
			return err
		}
	}

	view.Fprint(cmd.OutOrStdout())

	_, statErr := os.Stat(filename)
	if session.Unsaved() || moved || os.IsNotExist(statErr) {
		return saveSession(session, filename)
	}

	return nil
}

// saveSession writes the session next to the target file first, so that an
// interrupted save does not corrupt the previous one.
func saveSession(session *regdebug.Session, filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tracenav-session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = session.Serialize(tmp)
	if err != nil {
		tmp.Close()
		return err
	}

	err = tmp.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filename)
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	for _, c := range []*cobra.Command{
		sessionNewCmd, sessionShowCmd, sessionTagCmd, sessionValidateCmd,
	} {
		c.Flags().Int("page", 0,
			"Page to work on. Defaults to the saved current page.")
		sessionCmd.AddCommand(c)
	}
}
