package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/O-deepcodee/AWS/pkg/config"
	iamsvc "github.com/O-deepcodee/AWS/pkg/services/iam"
)

func newIAMCommand() *Command {
	return &Command{
		Name:        "iam",
		Description: "IAM user and role management commands",
		Subcommands: map[string]*Command{
			"list-users": {
				Name:        "list-users",
				Description: "List IAM users",
				Run:         runIAMListUsers,
			},
			"create-user": {
				Name:        "create-user",
				Description: "Create a new IAM user",
				Run:         runIAMCreateUser,
			},
		},
	}
}

func runIAMListUsers(cfg *config.Config, args []string) error {
	manager, err := iamsvc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	users, err := manager.ListUsers(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No IAM users found.")
		return nil
	}

	fmt.Printf("Found %d IAM users:\n", len(users))
	for _, user := range users {
		fmt.Printf("  Name: %s\n", user.UserName)
		fmt.Printf("  ARN: %s\n", user.Arn)
		fmt.Printf("  Created: %s\n", user.CreateDate.Format("2006-01-02 15:04:05"))
		fmt.Println("  ---")
	}
	return nil
}

func runIAMCreateUser(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("iam create-user", flag.ExitOnError)
	path := flags.String("path", "/", "Path for the user")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: iam create-user [flags] <username>")
	}

	manager, err := iamsvc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	user, err := manager.CreateUser(context.Background(), flags.Arg(0), *path)
	if err != nil {
		return err
	}

	fmt.Printf("Created user: %s\n", user.UserName)
	fmt.Printf("ARN: %s\n", user.Arn)
	return nil
}
