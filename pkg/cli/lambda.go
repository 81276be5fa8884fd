package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/O-deepcodee/AWS/pkg/config"
	lambdasvc "github.com/O-deepcodee/AWS/pkg/services/lambda"
)

func newLambdaCommand() *Command {
	return &Command{
		Name:        "lambda",
		Description: "Lambda function management commands",
		Subcommands: map[string]*Command{
			"list": {
				Name:        "list",
				Description: "List Lambda functions",
				Run:         runLambdaList,
			},
			"invoke": {
				Name:        "invoke",
				Description: "Invoke a Lambda function",
				Run:         runLambdaInvoke,
			},
		},
	}
}

func runLambdaList(cfg *config.Config, args []string) error {
	manager, err := lambdasvc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	functions, err := manager.ListFunctions(context.Background())
	if err != nil {
		return err
	}
	if len(functions) == 0 {
		fmt.Println("No Lambda functions found.")
		return nil
	}

	fmt.Printf("Found %d Lambda functions:\n", len(functions))
	for _, fn := range functions {
		fmt.Printf("  Name: %s\n", fn.FunctionName)
		fmt.Printf("  Runtime: %s\n", fn.Runtime)
		fmt.Printf("  Handler: %s\n", fn.Handler)
		fmt.Printf("  State: %s\n", fn.State)
		fmt.Println("  ---")
	}
	return nil
}

func runLambdaInvoke(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("lambda invoke", flag.ExitOnError)
	payload := flags.String("payload", "", "Function payload (JSON format)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: lambda invoke [flags] <function-name>")
	}

	var functionPayload interface{}
	if *payload != "" {
		if err := json.Unmarshal([]byte(*payload), &functionPayload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}

	manager, err := lambdasvc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	result, err := manager.Invoke(context.Background(), flags.Arg(0), functionPayload, "")
	if err != nil {
		return err
	}

	fmt.Println("Function invocation result:")
	fmt.Printf("Status Code: %d\n", result.StatusCode)
	if result.FunctionError != "" {
		fmt.Printf("Function Error: %s\n", result.FunctionError)
	}
	if result.Payload != nil {
		fmt.Printf("Response: %v\n", result.Payload)
	}
	return nil
}
