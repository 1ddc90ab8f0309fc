package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/openai"
)

// errorMarker prefixes tool results that report a failure, so the model
// can recognize them and self-correct on the next round.
const errorMarker = "ERROR:"

type ToolFunction interface {
	Name() string
	Description() string
	Parameters() jsonschema.Definition
	Function() any
}

// SourceReporter marks tools whose call is cited as a source in the
// final answer.
type SourceReporter interface {
	SourceURL(args map[string]any) string
}

// ImageReporter marks tools whose call attaches an image to the final
// answer.
type ImageReporter interface {
	ImageURL(args map[string]any) string
}

type toolService struct {
	functions map[string]ToolFunction
	tools     []openai.Tool
}

func NewToolService(toolFunctions []ToolFunction) (*toolService, error) {
	ts := &toolService{functions: make(map[string]ToolFunction, len(toolFunctions))}

	for _, t := range toolFunctions {
		if err := validateFunction(t); err != nil {
			return nil, fmt.Errorf("invalid tool function %q: %w", t.Name(), err)
		}
		if _, ok := ts.functions[t.Name()]; ok {
			return nil, fmt.Errorf("duplicate tool function %q", t.Name())
		}

		ts.functions[t.Name()] = t
		ts.tools = append(ts.tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.Function{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return ts, nil
}

// Tools returns the schema list sent with every model request, in
// registration order.
func (ts *toolService) Tools() []openai.Tool {
	return ts.tools
}

// Execute runs a single tool call and always produces a usable outcome.
// An unknown tool, bad arguments or a failing handler come back as textual
// content fed to the model as the tool result, never as an error.
func (ts *toolService) Execute(ctx context.Context, chatID int64, call domain.ToolCall) domain.ToolResult {
	name := call.Function.Name

	tool, ok := ts.functions[name]
	if !ok {
		slog.WarnContext(ctx, "Tool not found", "name", name, "chatID", chatID)
		return domain.ToolResult{Content: fmt.Sprintf("%s tool %q is not available", errorMarker, name)}
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		slog.WarnContext(ctx, "Tool arguments are not valid JSON",
			"name", name, "args", call.Function.Arguments, "chatID", chatID)
		return domain.ToolResult{Content: fmt.Sprintf("%s parsing arguments: %v", errorMarker, err)}
	}

	content, err := ts.invoke(ctx, chatID, tool, args)
	if err != nil {
		slog.ErrorContext(ctx, "Tool execution failed",
			"name", name, "args", call.Function.Arguments, "chatID", chatID, "err", err)
		return domain.ToolResult{Content: fmt.Sprintf("%s %v", errorMarker, err)}
	}

	result := domain.ToolResult{Content: content}
	if reporter, ok := tool.(SourceReporter); ok {
		result.SourceURL = reporter.SourceURL(args)
	}
	if reporter, ok := tool.(ImageReporter); ok {
		result.ImageURL = reporter.ImageURL(args)
	}
	return result
}

func (ts *toolService) invoke(ctx context.Context, chatID int64, tool ToolFunction, args map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	schema := tool.Parameters()
	if err := validateArguments(schema, args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	handler := reflect.ValueOf(tool.Function())
	handlerType := handler.Type()

	// handler signature is (ctx, chatID, declared params...) in schema order
	funcArgs := []reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(chatID),
	}
	for _, param := range paramOrder(schema) {
		if len(funcArgs) == handlerType.NumIn() {
			break
		}
		paramType := handlerType.In(len(funcArgs))

		value, ok := args[param]
		if !ok {
			// optional parameter the model omitted, the handler sees the zero value
			funcArgs = append(funcArgs, reflect.Zero(paramType))
			continue
		}

		converted, err := convertArgument(value, paramType)
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", param, err)
		}
		funcArgs = append(funcArgs, converted)
	}

	if len(funcArgs) != handlerType.NumIn() {
		return "", fmt.Errorf("handler expects %d arguments, schema provides %d",
			handlerType.NumIn(), len(funcArgs))
	}

	results := handler.Call(funcArgs)
	if len(results) != 2 {
		return "", fmt.Errorf("handler must return (string, error), got %d values", len(results))
	}

	content, ok := results[0].Interface().(string)
	if !ok {
		return "", errors.New("handler returned non-string result")
	}

	if errValue := results[1].Interface(); errValue != nil {
		err, ok = errValue.(error)
		if !ok {
			err = fmt.Errorf("handler returned non-error failure value: %v", errValue)
		}
		return "", err
	}

	return content, nil
}

func validateFunction(t ToolFunction) error {
	if t.Name() == "" {
		return errors.New("function name cannot be empty")
	}
	if t.Function() == nil {
		return errors.New("function handler cannot be nil")
	}
	if reflect.TypeOf(t.Function()).Kind() != reflect.Func {
		return errors.New("function handler must be callable")
	}
	return nil
}

func validateArguments(schema jsonschema.Definition, args map[string]any) error {
	for _, param := range schema.Required {
		if _, ok := args[param]; !ok {
			return fmt.Errorf("missing required parameter %q", param)
		}
	}

	for param, value := range args {
		def, ok := schema.Properties[param]
		if !ok {
			continue // models sometimes invent extra arguments, ignore them
		}
		if !isValidType(value, def.Type) {
			return fmt.Errorf("parameter %q has invalid type: expected %q, got %T", param, def.Type, value)
		}
	}
	return nil
}

// paramOrder is the positional order of handler parameters: required
// parameters as declared, then optional ones sorted by name.
func paramOrder(schema jsonschema.Definition) []string {
	order := append([]string{}, schema.Required...)

	var optional []string
	for name := range schema.Properties {
		if !lo.Contains(order, name) {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)

	return append(order, optional...)
}

func convertArgument(value any, target reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	// JSON numbers decode as float64, handlers may take int
	if v.Kind() == reflect.Float64 && target.Kind() >= reflect.Int && target.Kind() <= reflect.Float64 {
		return v.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, target)
}

func isValidType(value any, expected jsonschema.DataType) bool {
	switch expected {
	case jsonschema.String:
		_, ok := value.(string)
		return ok
	case jsonschema.Number:
		_, ok := value.(float64)
		return ok
	case jsonschema.Integer:
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case jsonschema.Boolean:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}
