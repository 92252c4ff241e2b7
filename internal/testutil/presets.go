package testutil

// MDI returns a small "mdi" set with 24x24 defaults.
func MDI() *SetBuilder {
	return NewIconSet("mdi").
		WithInfo("Material Design Icons", "Pictogrammers").
		WithSize(24, 24).
		WithIcon("home", Body(`<path fill="currentColor" d="M10 20v-6h4v6h5v-8h3L12 3L2 12h3v8z"/>`)).
		WithIcon("account", Body(`<path fill="currentColor" d="M12 4a4 4 0 0 1 4 4a4 4 0 0 1-4 4a4 4 0 0 1-4-4a4 4 0 0 1 4-4"/>`)).
		WithIcon("wide", Size(48, 24)).
		WithAlias("house", "home")
}

// MDILight returns a small "mdi-light" set.
func MDILight() *SetBuilder {
	return NewIconSet("mdi-light").
		WithSize(24, 24).
		WithIcon("home").
		WithIcon("bell")
}

// Carbon returns a small "carbon" set with 32x32 defaults.
func Carbon() *SetBuilder {
	return NewIconSet("carbon").
		WithSize(32, 32).
		WithIcon("add").
		WithIcon("close")
}
