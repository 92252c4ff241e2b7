package tracing

// Span names.
const (
	SpanCatalogLoad    = "catalog.load"
	SpanCatalogMigrate = "catalog.migrate"
	SpanCatalogClear   = "catalog.clear"
	SpanRender         = "render.icon"
	SpanAnnotateScan   = "annotate.scan"
)

// Span attribute keys.
const (
	AttrCollectionID  = "collection.id"
	AttrCatalogTier   = "catalog.tier"
	AttrCatalogResult = "catalog.result"
	AttrIconKey       = "icon.key"
	AttrIconSize      = "icon.size"
	AttrDocumentURI   = "document.uri"
	AttrTokenCount    = "tokens.count"
	AttrMigrated      = "migrated.count"
	AttrErrorMessage  = "error.message"
)

// Catalog tiers reported in AttrCatalogTier.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
	TierNetwork = "network"
	TierCustom  = "custom"
)

// Load results reported in AttrCatalogResult.
const (
	ResultResolved    = "resolved"
	ResultUnavailable = "unavailable"
)
