package testutil

import (
	"fmt"

	"github.com/zjrosen/iconlens/internal/iconify"
)

// IconOption configures an icon during builder setup.
type IconOption func(*iconify.IconDefinition)

func defaultIcon(name string) iconify.IconDefinition {
	return iconify.IconDefinition{
		Body: fmt.Sprintf(`<path fill="currentColor" d="M0 0h24v24H0z" data-name=%q/>`, name),
	}
}

// Body sets the icon's vector markup.
func Body(body string) IconOption {
	return func(i *iconify.IconDefinition) { i.Body = body }
}

// Size sets the icon's own dimensions.
func Size(width, height int) IconOption {
	return func(i *iconify.IconDefinition) {
		i.Width = width
		i.Height = height
	}
}
