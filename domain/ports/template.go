package ports

// TemplateEngine renders a raw manifest before it is parsed.
type TemplateEngine interface {
	Render(raw []byte, data map[string]any) ([]byte, error)
}
