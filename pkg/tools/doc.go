// Package tools defines the functions generated code can call and the
// Catalog that exposes them to the interpreter as the virtual package
// "askdata/tools".
//
// Each Tool contributes Go symbols (functions, and the types their
// signatures use) bound to the request context, a documentation block shown
// to the model, and optionally request-specific prompt context such as a
// database schema. Tool implementations live under pkg/tools/builtins.
package tools
