// Package internal provides the linting engine behind rlin.
//
// Engine: parses each Ruby file once, walks the tree once and hands every
// node to the rules subscribed to its kind. Issues silenced by nolint
// comments are dropped and the rest are sorted by position.
//
// LintRule: the contract every rule implements. Rules declare the node
// kinds they inspect and carry a configurable severity.
//
// Cache: stores the issues of unchanged files between runs, keyed by a
// content hash and invalidated when the configuration changes.
//
// Watch: relints files as they change on disk.
//
// Usage:
//
//	engine, err := internal.NewEngine(".", nil)
//	if err != nil {
//	    // handle error
//	}
//	issues, err := engine.Run("app/models/user.rb")
package internal
