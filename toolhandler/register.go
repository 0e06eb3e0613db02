package toolhandler

import (
	"context"
	"fmt"
	"reflect"
)

// RegisterFunc registers fn as a tool named name, generating its schema
// from Args' struct tags (see schema.go) and coercing incoming
// map[string]any arguments into Args via marshal.go's rules. If Args has a
// field tagged `hbot:"inject"`, it is populated with the calling bot
// (whatever was passed to Handler.Execute) at call time, provided its type
// is assignable from the bot value; otherwise it is left zero.
func RegisterFunc[Args any](h *Handler, name, description string, fn func(context.Context, Args) (any, error)) error {
	schema, err := generateSchema[Args]()
	if err != nil {
		return fmt.Errorf("generate schema for %s: %w", name, err)
	}
	injected := injectedFieldIndex[Args]()

	entry := &Entry{
		Name:        name,
		Description: description,
		Schema:      schema,
		Source:      SourceModule,
		SourceRef:   name,
		call: func(ctx context.Context, args map[string]any, bot any) (any, error) {
			var typed Args
			if err := mapToStruct(args, &typed); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
			if injected >= 0 && bot != nil {
				injectBotField(&typed, injected, bot)
			}
			return fn(ctx, typed)
		},
	}
	return h.Register(entry)
}

// RegisterFuncWithSource is RegisterFunc plus an explicit persistence
// record (SourceFile/SourceInline), for tools loaded from a file path or
// from the inline-constructor registry rather than a static package
// function.
func RegisterFuncWithSource[Args any](h *Handler, name, description string, source SourceKind, sourceRef string, fn func(context.Context, Args) (any, error)) error {
	schema, err := generateSchema[Args]()
	if err != nil {
		return fmt.Errorf("generate schema for %s: %w", name, err)
	}
	injected := injectedFieldIndex[Args]()

	entry := &Entry{
		Name:        name,
		Description: description,
		Schema:      schema,
		Source:      source,
		SourceRef:   sourceRef,
		call: func(ctx context.Context, args map[string]any, bot any) (any, error) {
			var typed Args
			if err := mapToStruct(args, &typed); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
			if injected >= 0 && bot != nil {
				injectBotField(&typed, injected, bot)
			}
			return fn(ctx, typed)
		},
	}
	return h.Register(entry)
}

// injectedFieldIndex returns the struct field index tagged `hbot:"inject"`
// on Args, or -1 if none.
func injectedFieldIndex[Args any]() int {
	t := reflect.TypeOf(*new(Args))
	if t.Kind() != reflect.Struct {
		return -1
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get(injectTag) == "inject" {
			return i
		}
	}
	return -1
}

func injectBotField(typed any, fieldIdx int, bot any) {
	v := reflect.ValueOf(typed).Elem()
	field := v.Field(fieldIdx)
	botVal := reflect.ValueOf(bot)
	if botVal.Type().AssignableTo(field.Type()) {
		field.Set(botVal)
	}
}
