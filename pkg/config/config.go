package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies which form a configuration Value takes.
type Kind int

const (
	NullKind Kind = iota
	StringKind
	IntKind
	BoolKind
	TreeKind
)

func (k Kind) String() string {
	return []string{"null", "string", "int", "bool", "tree"}[k]
}

// Value is one node of the configuration tree: a scalar (string, int, bool,
// null) or a nested Tree.
type Value struct {
	kind Kind
	str  string
	num  int
	flag bool
	tree Tree
}

// Tree maps configuration keys to values at one nesting level. Keys within
// one level are unique by construction.
type Tree map[string]Value

// NullValue returns the absent/null value.
func NullValue() Value { return Value{kind: NullKind} }

// StringValue wraps s as a configuration value.
func StringValue(s string) Value { return Value{kind: StringKind, str: s} }

// IntValue wraps n as a configuration value.
func IntValue(n int) Value { return Value{kind: IntKind, num: n} }

// BoolValue wraps b as a configuration value.
func BoolValue(b bool) Value { return Value{kind: BoolKind, flag: b} }

// TreeValue wraps t as a nested mapping value.
func TreeValue(t Tree) Value { return Value{kind: TreeKind, tree: t} }

// Kind reports the form of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent/null.
func (v Value) IsNull() bool { return v.kind == NullKind }

// StringOr returns the string form of the value, or def if the value is not
// a string.
func (v Value) StringOr(def string) string {
	if v.kind == StringKind {
		return v.str
	}
	return def
}

// IntOr returns the integer form of the value, or def if the value is not an
// integer.
func (v Value) IntOr(def int) int {
	if v.kind == IntKind {
		return v.num
	}
	return def
}

// BoolOr returns the boolean form of the value, or def if the value is not a
// boolean.
func (v Value) BoolOr(def bool) bool {
	if v.kind == BoolKind {
		return v.flag
	}
	return def
}

// Tree returns the nested mapping held by the value, if any.
func (v Value) Tree() (Tree, bool) {
	if v.kind == TreeKind {
		return v.tree, true
	}
	return nil, false
}

// UnmarshalYAML decodes a YAML node into a tagged Value. Mappings become
// nested Trees; integer, boolean and null scalars keep their type; every
// other scalar is kept as its raw string. Sequences are not valid
// configuration values.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		t := Tree{}
		if err := node.Decode(&t); err != nil {
			return err
		}
		*v = TreeValue(t)
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			*v = NullValue()
		case "!!int":
			n, err := strconv.Atoi(node.Value)
			if err != nil {
				return fmt.Errorf("line %d: invalid integer %q", node.Line, node.Value)
			}
			*v = IntValue(n)
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*v = BoolValue(b)
		default:
			*v = StringValue(node.Value)
		}
	case yaml.AliasNode:
		return v.UnmarshalYAML(node.Alias)
	default:
		return fmt.Errorf("line %d: configuration values must be scalars or mappings", node.Line)
	}
	return nil
}

// ParseError reports a configuration file that exists but does not contain
// valid YAML mappings.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid YAML in config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config is the effective configuration for one process invocation. Each
// entry point constructs its own Config and passes it down explicitly; it is
// not safe for concurrent mutation.
type Config struct {
	tree Tree
}

// Load builds the effective configuration: compiled-in defaults overlaid by
// environment variables, then by the optional YAML file at path. An empty
// path or a file that does not exist leaves the environment-derived tree
// untouched. A file that exists but fails to parse yields a *ParseError; a
// file that cannot be read for any other reason yields a distinct error.
func Load(path string) (*Config, error) {
	cfg := &Config{tree: envTree()}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	overlay := Tree{}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	merge(cfg.tree, overlay)
	return cfg, nil
}

// envTree seeds the tree with the fixed defaults, each overridable by its
// environment variable. Credentials have no default and stay null when the
// variable is unset.
func envTree() Tree {
	return Tree{
		"aws": TreeValue(Tree{
			"access_key_id":     envString("AWS_ACCESS_KEY_ID"),
			"secret_access_key": envString("AWS_SECRET_ACCESS_KEY"),
			"session_token":     envString("AWS_SESSION_TOKEN"),
			"region":            StringValue(getEnv("AWS_DEFAULT_REGION", "us-east-1")),
			"profile":           envString("AWS_PROFILE"),
		}),
		"app": TreeValue(Tree{
			"log_level": StringValue(getEnv("LOG_LEVEL", "INFO")),
			"debug":     BoolValue(getEnvBool("DEBUG", false)),
		}),
		"s3": TreeValue(Tree{
			"bucket_prefix": StringValue(getEnv("S3_BUCKET_PREFIX", "aws-toolkit-")),
			"encryption":    StringValue(getEnv("S3_ENCRYPTION", "AES256")),
		}),
		"ec2": TreeValue(Tree{
			"key_pair_name":  StringValue(getEnv("EC2_KEY_PAIR_NAME", "aws-toolkit-keypair")),
			"security_group": StringValue(getEnv("EC2_SECURITY_GROUP", "aws-toolkit-sg")),
		}),
		"lambda": TreeValue(Tree{
			"timeout":     IntValue(getEnvInt("LAMBDA_TIMEOUT", 30)),
			"memory_size": IntValue(getEnvInt("LAMBDA_MEMORY_SIZE", 128)),
		}),
	}
}

// merge overlays b onto a in place. Where both sides hold mappings at the
// same key it recurses; otherwise the overlay value replaces the base value
// entirely. Keys present only in a are preserved.
func merge(a, b Tree) {
	for key, ov := range b {
		if bt, ok := ov.Tree(); ok {
			if at, ok := a[key].Tree(); ok {
				merge(at, bt)
				continue
			}
		}
		a[key] = ov
	}
}

// Get traverses the tree along the dot-delimited path and returns the value
// found there. It returns def as soon as a segment is missing or a non-final
// segment is not a mapping; it never fails.
func (c *Config) Get(path string, def Value) Value {
	segments := strings.Split(path, ".")
	tree := c.tree

	for i, seg := range segments {
		v, ok := tree[seg]
		if !ok {
			return def
		}
		if i == len(segments)-1 {
			return v
		}
		tree, ok = v.Tree()
		if !ok {
			return def
		}
	}
	return def
}

// GetString returns the string at path, or def when the path is missing or
// holds a non-string value.
func (c *Config) GetString(path, def string) string {
	return c.Get(path, StringValue(def)).StringOr(def)
}

// GetInt returns the integer at path, or def when the path is missing or
// holds a non-integer value.
func (c *Config) GetInt(path string, def int) int {
	return c.Get(path, IntValue(def)).IntOr(def)
}

// GetBool returns the boolean at path, or def when the path is missing or
// holds a non-boolean value.
func (c *Config) GetBool(path string, def bool) bool {
	return c.Get(path, BoolValue(def)).BoolOr(def)
}

// Set assigns v at the dot-delimited path, creating intermediate mappings
// for any segment that is absent or holds a scalar. The final segment is
// always an overwrite, never a merge.
func (c *Config) Set(path string, v Value) {
	segments := strings.Split(path, ".")
	tree := c.tree

	for _, seg := range segments[:len(segments)-1] {
		child, ok := tree[seg].Tree()
		if !ok {
			child = Tree{}
			tree[seg] = TreeValue(child)
		}
		tree = child
	}
	tree[segments[len(segments)-1]] = v
}

// Snapshot returns a shallow copy of the top level of the tree.
func (c *Config) Snapshot() Tree {
	out := make(Tree, len(c.tree))
	for k, v := range c.tree {
		out[k] = v
	}
	return out
}

// Recognized keys of the derived credential view.
const (
	CredAccessKeyID     = "access_key_id"
	CredSecretAccessKey = "secret_access_key"
	CredSessionToken    = "session_token"
	CredRegion          = "region"
)

// CredentialView returns the flat subset of configuration used to construct
// AWS SDK clients. Entries whose source path is null or empty are omitted
// entirely rather than included with an empty value.
func (c *Config) CredentialView() map[string]string {
	view := make(map[string]string)
	for _, key := range []string{CredAccessKeyID, CredSecretAccessKey, CredSessionToken, CredRegion} {
		if s := c.GetString("aws."+key, ""); s != "" {
			view[key] = s
		}
	}
	return view
}

// envString returns the value of the environment variable, or null when it
// is unset or empty.
func envString(key string) Value {
	if v := os.Getenv(key); v != "" {
		return StringValue(v)
	}
	return NullValue()
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
