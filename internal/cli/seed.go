package cli

import (
	"fmt"

	"foodconnect/internal/app"
	"foodconnect/internal/seed"

	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	File     string
	Validate bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts and food posts",
		Long: `Load accounts and food posts from a YAML fixture, or the built-in demo
fixture when --file is not given.

Accounts whose email already exists are skipped, so running seed twice
is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "fixture file (default: built-in demo data)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "check the fixture without touching the store")

	return cmd
}

func runSeed(rootOpts *RootOptions, opts *SeedOptions, cmd *cobra.Command) error {
	fixture, err := loadFixture(opts.File)
	if err != nil {
		return err
	}
	if opts.Validate {
		if err := fixture.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fixture ok: %d users, %d posts\n", len(fixture.Users), len(fixture.Posts))
		return nil
	}

	store, err := rootOpts.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	a := app.New(store.Repos, nil, store.Ping)
	res, err := seed.NewSeeder(store.Repos, a.Accounts).Apply(cmd.Context(), fixture)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "users created: %d, skipped: %d, posts created: %d\n",
		res.UsersCreated, res.UsersSkipped, res.PostsCreated)
	return nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
