package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/setup"
	"github.com/dvloznov/finansmanager/internal/store"
)

var setupName string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or edit your profile",
	Long: `Walks through the two setup steps: profile (name, place, currency,
purpose) and accounts (banks, categories). Press enter to keep the value in
brackets. Lists are comma separated.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupName, "name", "", "display name suggested on first run")
}

// prompter reads one answer per line. EOF answers with the default.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// askValid repeats the question until set accepts the answer.
func (p prompter) askValid(label, def string, set func(string) error) error {
	for attempt := 0; ; attempt++ {
		answer, err := p.ask(label, def)
		if err != nil {
			return err
		}
		err = set(answer)
		if err == nil {
			return nil
		}
		if attempt == 2 {
			return err
		}
		fmt.Fprintf(p.out, "  %v\n", err)
	}
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out}

	return withRepository(ctx, func(repo store.Repository) error {
		existing, err := repo.GetProfile(ctx, userID())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("runSetup: load profile: %w", err)
		}

		w := setup.NewWizard(userID(), setupName, existing, repo)
		d := w.Draft()

		fmt.Fprintln(out, "Step 1 of 2: profile")
		if err := p.askValid("Name", d.Name, func(s string) error { w.SetName(s); return nil }); err != nil {
			return err
		}
		if err := p.askValid("Place", d.Place, func(s string) error { w.SetPlace(s); return nil }); err != nil {
			return err
		}
		if err := p.askValid("Currency ("+strings.Join(setup.Currencies, ", ")+")", d.Currency, w.SetCurrency); err != nil {
			return err
		}
		if err := p.askValid("Purpose ("+strings.Join(setup.Purposes, ", ")+")", d.Purpose, w.SetPurpose); err != nil {
			return err
		}
		if err := w.Next(); err != nil {
			return err
		}

		fmt.Fprintln(out, "Step 2 of 2: accounts")
		banks, err := p.ask("Banks", bankNames(d.Banks))
		if err != nil {
			return err
		}
		if err := applyBanks(w, splitList(banks)); err != nil {
			return err
		}
		categories, err := p.ask("Categories", strings.Join(d.Categories, ", "))
		if err != nil {
			return err
		}
		applyCategories(w, splitList(categories))

		profile, err := w.Submit(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Saved profile for %s: %s, %s, %s, %d bank(s), %d categories\n",
			profile.Name, profile.Place, profile.Currency, profile.Purpose, len(profile.Banks), len(profile.Categories))
		return nil
	})
}

// applyBanks makes the wizard's bank rows match names, in order.
func applyBanks(w *setup.Wizard, names []string) error {
	if len(names) == 0 {
		return nil
	}
	current := len(w.Draft().Banks)
	for i, name := range names {
		if i < current {
			if err := w.RenameBank(i, name); err != nil {
				return err
			}
			continue
		}
		w.AddBank(name)
	}
	for i := current - 1; i >= len(names); i-- {
		if err := w.RemoveBank(i); err != nil {
			return err
		}
	}
	return nil
}

// applyCategories toggles the wizard's selection to match names.
func applyCategories(w *setup.Wizard, names []string) {
	if len(names) == 0 {
		return
	}
	for _, c := range w.Draft().Categories {
		if !slices.Contains(names, c) {
			w.ToggleCategory(c)
		}
	}
	selected := w.Draft().Categories
	for _, c := range names {
		if !slices.Contains(selected, c) {
			w.ToggleCategory(c)
			selected = append(selected, c)
		}
	}
}

func bankNames(banks []domain.Bank) string {
	names := make([]string, 0, len(banks))
	for _, b := range banks {
		names = append(names, b.Name)
	}
	return strings.Join(names, ", ")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
