// Package logging configures the log/slog logger shared by every
// Smart Lighting Core component.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components log through a child created with Component, so lines can be
// filtered by component=auth, component=mqtt and so on.
//
// Never log secrets, tokens or passwords. The one exception is the
// generated bootstrap admin password, which is printed once on first start.
package logging
