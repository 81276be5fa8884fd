package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/O-deepcodee/AWS/pkg/config"
	ec2svc "github.com/O-deepcodee/AWS/pkg/services/ec2"
)

func newEC2Command() *Command {
	return &Command{
		Name:        "ec2",
		Description: "EC2 instance management commands",
		Subcommands: map[string]*Command{
			"list": {
				Name:        "list",
				Description: "List EC2 instances",
				Run:         runEC2List,
			},
			"create": {
				Name:        "create",
				Description: "Create a new EC2 instance",
				Run:         runEC2Create,
			},
			"terminate": {
				Name:        "terminate",
				Description: "Terminate an EC2 instance",
				Run:         runEC2Terminate,
			},
			"start": {
				Name:        "start",
				Description: "Start a stopped EC2 instance",
				Run:         runEC2Start,
			},
			"stop": {
				Name:        "stop",
				Description: "Stop a running EC2 instance",
				Run:         runEC2Stop,
			},
		},
	}
}

func runEC2List(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("ec2 list", flag.ExitOnError)
	state := flags.String("state", "", "Filter by instance state")
	if err := flags.Parse(args); err != nil {
		return err
	}

	manager, err := ec2svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	var filters map[string][]string
	if *state != "" {
		filters = map[string][]string{"instance-state-name": {*state}}
	}

	instances, err := manager.ListInstances(context.Background(), filters)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println("No instances found.")
		return nil
	}

	fmt.Printf("Found %d instances:\n", len(instances))
	for _, instance := range instances {
		fmt.Printf("  ID: %s\n", instance.InstanceID)
		fmt.Printf("  Type: %s\n", instance.InstanceType)
		fmt.Printf("  State: %s\n", instance.State)
		publicIP := instance.PublicIPAddress
		if publicIP == "" {
			publicIP = "N/A"
		}
		fmt.Printf("  Public IP: %s\n", publicIP)
		fmt.Println("  ---")
	}
	return nil
}

func runEC2Create(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("ec2 create", flag.ExitOnError)
	keyName := flags.String("key-name", "", "SSH key pair name")
	tags := flags.String("tags", "", "Instance tags (JSON format)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: ec2 create [flags] <instance-type> <image-id>")
	}

	var instanceTags map[string]string
	if *tags != "" {
		if err := json.Unmarshal([]byte(*tags), &instanceTags); err != nil {
			return fmt.Errorf("invalid tags: %w", err)
		}
	}

	manager, err := ec2svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	instance, err := manager.CreateInstance(context.Background(), ec2svc.CreateInstanceInput{
		InstanceType: flags.Arg(0),
		ImageID:      flags.Arg(1),
		KeyName:      *keyName,
		Tags:         instanceTags,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created instance: %s\n", instance.InstanceID)
	fmt.Printf("Type: %s\n", instance.InstanceType)
	fmt.Printf("State: %s\n", instance.State)
	return nil
}

func runEC2Terminate(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("ec2 terminate", flag.ExitOnError)
	yes := flags.Bool("yes", false, "Skip confirmation")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: ec2 terminate [flags] <instance-id>")
	}
	if !*yes {
		return fmt.Errorf("refusing to terminate without -yes")
	}

	manager, err := ec2svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	instanceID := flags.Arg(0)
	if err := manager.TerminateInstance(context.Background(), instanceID); err != nil {
		return err
	}

	fmt.Printf("Terminated instance: %s\n", instanceID)
	return nil
}

func runEC2Start(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ec2 start <instance-id>")
	}

	manager, err := ec2svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	if err := manager.StartInstance(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Started instance: %s\n", args[0])
	return nil
}

func runEC2Stop(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ec2 stop <instance-id>")
	}

	manager, err := ec2svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	if err := manager.StopInstance(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Stopped instance: %s\n", args[0])
	return nil
}
