package lambda

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/O-deepcodee/AWS/pkg/awsclient"
	"github.com/O-deepcodee/AWS/pkg/config"
	"github.com/O-deepcodee/AWS/pkg/observability"
)

// API is the subset of the Lambda client used by Manager.
type API interface {
	ListFunctions(ctx context.Context, params *awslambda.ListFunctionsInput, optFns ...func(*awslambda.Options)) (*awslambda.ListFunctionsOutput, error)
	CreateFunction(ctx context.Context, params *awslambda.CreateFunctionInput, optFns ...func(*awslambda.Options)) (*awslambda.CreateFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, params *awslambda.UpdateFunctionCodeInput, optFns ...func(*awslambda.Options)) (*awslambda.UpdateFunctionCodeOutput, error)
	Invoke(ctx context.Context, params *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
	DeleteFunction(ctx context.Context, params *awslambda.DeleteFunctionInput, optFns ...func(*awslambda.Options)) (*awslambda.DeleteFunctionOutput, error)
	GetFunction(ctx context.Context, params *awslambda.GetFunctionInput, optFns ...func(*awslambda.Options)) (*awslambda.GetFunctionOutput, error)
	CreateEventSourceMapping(ctx context.Context, params *awslambda.CreateEventSourceMappingInput, optFns ...func(*awslambda.Options)) (*awslambda.CreateEventSourceMappingOutput, error)
	AddPermission(ctx context.Context, params *awslambda.AddPermissionInput, optFns ...func(*awslambda.Options)) (*awslambda.AddPermissionOutput, error)
}

// Function is the reshaped view of one Lambda function.
type Function struct {
	FunctionName string
	FunctionArn  string
	Runtime      string
	Handler      string
	CodeSize     int64
	Description  string
	Timeout      int32
	MemorySize   int32
	LastModified string
	State        string
	Environment  map[string]string
	CodeSha256   string
}

// CreateFunctionInput carries the parameters for a new function. CodePath
// may point at a zip file or a directory; directories are zipped in place.
type CreateFunctionInput struct {
	FunctionName    string
	Runtime         string
	RoleARN         string
	Handler         string
	CodePath        string
	Description     string
	Timeout         int32
	MemorySize      int32
	EnvironmentVars map[string]string
}

// InvocationResult is the reshaped view of one invocation response. Payload
// holds the JSON-decoded response when it parses, the raw string otherwise.
type InvocationResult struct {
	StatusCode      int32
	ExecutedVersion string
	FunctionError   string
	Payload         interface{}
}

// EventSourceMapping is the reshaped view of a created mapping.
type EventSourceMapping struct {
	UUID           string
	EventSourceArn string
	FunctionArn    string
	State          string
}

// Manager manages Lambda functions.
type Manager struct {
	api API
	cfg *config.Config
	log *observability.Logger
}

// New creates a manager backed by a real Lambda client built from cfg.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Lambda client: %w", err)
	}
	return NewWithAPI(awslambda.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a manager on top of an existing client, real or fake.
func NewWithAPI(api API, cfg *config.Config) *Manager {
	return &Manager{
		api: api,
		cfg: cfg,
		log: observability.FromConfig(cfg).WithField("service", "lambda"),
	}
}

// ListFunctions lists all Lambda functions.
func (m *Manager) ListFunctions(ctx context.Context) ([]Function, error) {
	out, err := m.api.ListFunctions(ctx, &awslambda.ListFunctionsInput{})
	if err != nil {
		m.log.WithError(err).Error("failed to list functions")
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}

	functions := make([]Function, 0, len(out.Functions))
	for _, fn := range out.Functions {
		functions = append(functions, reshapeFunction(fn))
	}

	m.log.Infof("Found %d Lambda functions", len(functions))
	return functions, nil
}

// CreateFunction creates a new Lambda function. Zero Timeout and MemorySize
// fall back to the configured lambda.timeout and lambda.memory_size.
func (m *Manager) CreateFunction(ctx context.Context, in CreateFunctionInput) (*Function, error) {
	zipContent, err := loadCode(in.CodePath)
	if err != nil {
		m.log.WithError(err).Errorf("failed to create function %s", in.FunctionName)
		return nil, fmt.Errorf("failed to create function %s: %w", in.FunctionName, err)
	}

	timeout := in.Timeout
	if timeout == 0 {
		timeout = int32(m.cfg.GetInt("lambda.timeout", 30))
	}
	memorySize := in.MemorySize
	if memorySize == 0 {
		memorySize = int32(m.cfg.GetInt("lambda.memory_size", 128))
	}

	params := &awslambda.CreateFunctionInput{
		FunctionName: aws.String(in.FunctionName),
		Runtime:      types.Runtime(in.Runtime),
		Role:         aws.String(in.RoleARN),
		Handler:      aws.String(in.Handler),
		Code:         &types.FunctionCode{ZipFile: zipContent},
		Timeout:      aws.Int32(timeout),
		MemorySize:   aws.Int32(memorySize),
	}
	if in.Description != "" {
		params.Description = aws.String(in.Description)
	}
	if len(in.EnvironmentVars) > 0 {
		params.Environment = &types.Environment{Variables: in.EnvironmentVars}
	}

	out, err := m.api.CreateFunction(ctx, params)
	if err != nil {
		m.log.WithError(err).Errorf("failed to create function %s", in.FunctionName)
		return nil, fmt.Errorf("failed to create function %s: %w", in.FunctionName, err)
	}

	m.log.Infof("Created Lambda function: %s", in.FunctionName)
	return &Function{
		FunctionName: aws.ToString(out.FunctionName),
		FunctionArn:  aws.ToString(out.FunctionArn),
		Runtime:      string(out.Runtime),
		Handler:      aws.ToString(out.Handler),
		State:        string(out.State),
	}, nil
}

// UpdateFunctionCode replaces a function's code with the zip file or
// directory at codePath.
func (m *Manager) UpdateFunctionCode(ctx context.Context, functionName, codePath string) error {
	zipContent, err := loadCode(codePath)
	if err != nil {
		m.log.WithError(err).Error("failed to update function code")
		return fmt.Errorf("failed to update function code: %w", err)
	}

	_, err = m.api.UpdateFunctionCode(ctx, &awslambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(functionName),
		ZipFile:      zipContent,
	})
	if err != nil {
		m.log.WithError(err).Error("failed to update function code")
		return fmt.Errorf("failed to update function code: %w", err)
	}

	m.log.Infof("Updated code for function: %s", functionName)
	return nil
}

// Invoke invokes a function. For RequestResponse invocations the response
// payload is JSON-decoded when possible and kept as a raw string otherwise.
func (m *Manager) Invoke(ctx context.Context, functionName string, payload interface{}, invocationType string) (*InvocationResult, error) {
	if invocationType == "" {
		invocationType = string(types.InvocationTypeRequestResponse)
	}

	params := &awslambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: types.InvocationType(invocationType),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to invoke function %s: %w", functionName, err)
		}
		params.Payload = data
	}

	out, err := m.api.Invoke(ctx, params)
	if err != nil {
		m.log.WithError(err).Errorf("failed to invoke function %s", functionName)
		return nil, fmt.Errorf("failed to invoke function %s: %w", functionName, err)
	}

	result := &InvocationResult{
		StatusCode:      out.StatusCode,
		ExecutedVersion: aws.ToString(out.ExecutedVersion),
		FunctionError:   aws.ToString(out.FunctionError),
	}
	if len(out.Payload) > 0 {
		var decoded interface{}
		if invocationType == string(types.InvocationTypeRequestResponse) && json.Unmarshal(out.Payload, &decoded) == nil {
			result.Payload = decoded
		} else {
			result.Payload = string(out.Payload)
		}
	}

	m.log.Infof("Invoked function: %s", functionName)
	return result, nil
}

// DeleteFunction deletes a function.
func (m *Manager) DeleteFunction(ctx context.Context, functionName string) error {
	_, err := m.api.DeleteFunction(ctx, &awslambda.DeleteFunctionInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to delete function %s", functionName)
		return fmt.Errorf("failed to delete function %s: %w", functionName, err)
	}

	m.log.Infof("Deleted function: %s", functionName)
	return nil
}

// GetFunction returns the reshaped configuration of one function.
func (m *Manager) GetFunction(ctx context.Context, functionName string) (*Function, error) {
	out, err := m.api.GetFunction(ctx, &awslambda.GetFunctionInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to get function %s", functionName)
		return nil, fmt.Errorf("failed to get function %s: %w", functionName, err)
	}
	if out.Configuration == nil {
		return nil, fmt.Errorf("failed to get function %s: empty configuration", functionName)
	}

	fn := reshapeFunction(*out.Configuration)
	return &fn, nil
}

// CreateEventSourceMapping wires an event source (e.g. a Kinesis stream) to
// a function.
func (m *Manager) CreateEventSourceMapping(ctx context.Context, functionName, eventSourceARN, startingPosition string) (*EventSourceMapping, error) {
	if startingPosition == "" {
		startingPosition = string(types.EventSourcePositionLatest)
	}

	out, err := m.api.CreateEventSourceMapping(ctx, &awslambda.CreateEventSourceMappingInput{
		FunctionName:     aws.String(functionName),
		EventSourceArn:   aws.String(eventSourceARN),
		StartingPosition: types.EventSourcePosition(startingPosition),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to create event source mapping")
		return nil, fmt.Errorf("failed to create event source mapping: %w", err)
	}

	m.log.Infof("Created event source mapping for %s", functionName)
	return &EventSourceMapping{
		UUID:           aws.ToString(out.UUID),
		EventSourceArn: aws.ToString(out.EventSourceArn),
		FunctionArn:    aws.ToString(out.FunctionArn),
		State:          aws.ToString(out.State),
	}, nil
}

// AddPermission grants a principal permission to act on a function.
func (m *Manager) AddPermission(ctx context.Context, functionName, statementID, action, principal, sourceARN string) error {
	params := &awslambda.AddPermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(statementID),
		Action:       aws.String(action),
		Principal:    aws.String(principal),
	}
	if sourceARN != "" {
		params.SourceArn = aws.String(sourceARN)
	}

	if _, err := m.api.AddPermission(ctx, params); err != nil {
		m.log.WithError(err).Error("failed to add permission")
		return fmt.Errorf("failed to add permission: %w", err)
	}

	m.log.Infof("Added permission to function: %s", functionName)
	return nil
}

// loadCode reads deployment code from a zip file, zipping directories on
// the fly.
func loadCode(codePath string) ([]byte, error) {
	info, err := os.Stat(codePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return os.ReadFile(codePath)
	}

	var buf bytes.Buffer
	if err := zipDirectory(&buf, codePath); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// zipDirectory writes a zip archive of every regular file under directory
// to out, with archive names relative to the directory root. The writer's
// Close error is returned so a failed flush never yields a truncated
// archive.
func zipDirectory(out io.Writer, directory string) error {
	w := zip.NewWriter(out)

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(directory, path)
		if err != nil {
			return err
		}

		dst, err := w.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

// reshapeFunction flattens one SDK function configuration.
func reshapeFunction(fn types.FunctionConfiguration) Function {
	state := string(fn.State)
	if state == "" {
		state = "Active"
	}

	out := Function{
		FunctionName: aws.ToString(fn.FunctionName),
		FunctionArn:  aws.ToString(fn.FunctionArn),
		Runtime:      string(fn.Runtime),
		Handler:      aws.ToString(fn.Handler),
		CodeSize:     fn.CodeSize,
		Description:  aws.ToString(fn.Description),
		Timeout:      aws.ToInt32(fn.Timeout),
		MemorySize:   aws.ToInt32(fn.MemorySize),
		LastModified: aws.ToString(fn.LastModified),
		State:        state,
		CodeSha256:   aws.ToString(fn.CodeSha256),
	}
	if fn.Environment != nil {
		out.Environment = fn.Environment.Variables
	}
	return out
}
