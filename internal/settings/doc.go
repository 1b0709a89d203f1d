// Package settings loads the daemon configuration.
//
// Values come, in increasing order of precedence, from built-in defaults,
// a YAML file and TACKD_-prefixed environment variables. The file is the one
// given explicitly, or config.yaml in the XDG config directory when it
// exists. Command-line flags are applied on top by the cli package.
//
//	# ~/.config/tackd/config.yaml
//	main_class: com.example.Compiler
//	max_contexts: 16
//	idle_timeout: 30m
package settings
