package middleware

import (
	"goa.design/anthropic-codec/features/model/anthropic"
	"goa.design/anthropic-codec/features/model/bedrock"
)

var (
	_ Client[*anthropic.Stream] = (*anthropic.Client)(nil)
	_ Client[*bedrock.Stream]   = (*bedrock.Client)(nil)
)
