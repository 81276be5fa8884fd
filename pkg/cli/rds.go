package cli

import (
	"context"
	"fmt"

	"github.com/O-deepcodee/AWS/pkg/config"
	rdssvc "github.com/O-deepcodee/AWS/pkg/services/rds"
)

func newRDSCommand() *Command {
	return &Command{
		Name:        "rds",
		Description: "RDS database management commands",
		Subcommands: map[string]*Command{
			"list": {
				Name:        "list",
				Description: "List RDS instances",
				Run:         runRDSList,
			},
		},
	}
}

func runRDSList(cfg *config.Config, args []string) error {
	manager, err := rdssvc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	instances, err := manager.ListInstances(context.Background())
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println("No RDS instances found.")
		return nil
	}

	fmt.Printf("Found %d RDS instances:\n", len(instances))
	for _, instance := range instances {
		fmt.Printf("  ID: %s\n", instance.DBInstanceIdentifier)
		fmt.Printf("  Engine: %s\n", instance.Engine)
		fmt.Printf("  Class: %s\n", instance.DBInstanceClass)
		fmt.Printf("  Status: %s\n", instance.DBInstanceStatus)
		endpoint := instance.Endpoint
		if endpoint == "" {
			endpoint = "N/A"
		}
		fmt.Printf("  Endpoint: %s\n", endpoint)
		fmt.Println("  ---")
	}
	return nil
}
