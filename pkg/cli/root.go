package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/O-deepcodee/AWS/pkg/config"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(cfg *config.Config, args []string) error
	Subcommands map[string]*Command
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "awstk",
		Description: "AWS Toolkit - manage EC2, S3, Lambda, RDS, and IAM resources",
		Subcommands: make(map[string]*Command),
	}

	// Add subcommands
	root.Subcommands["ec2"] = newEC2Command()
	root.Subcommands["s3"] = newS3Command()
	root.Subcommands["lambda"] = newLambdaCommand()
	root.Subcommands["rds"] = newRDSCommand()
	root.Subcommands["iam"] = newIAMCommand()
	root.Subcommands["version"] = newVersionCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	flags := flag.NewFlagSet(c.Name, flag.ExitOnError)
	configPath := flags.String("config", "", "Configuration file path")
	verbose := flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	args := flags.Args()
	if len(args) == 0 || args[0] == "help" {
		return c.usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Set("app.log_level", config.StringValue("DEBUG"))
	}

	return c.dispatch(cfg, args)
}

// dispatch walks the command tree until it reaches a runnable command.
func (c *Command) dispatch(cfg *config.Config, args []string) error {
	sub, ok := c.Subcommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}

	rest := args[1:]
	if sub.Run != nil {
		return sub.Run(cfg, rest)
	}
	if len(rest) == 0 {
		return sub.usage()
	}
	return sub.dispatch(cfg, rest)
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
