package location

// SelectProvider resolves the provider to use for a priority.
// PriorityNoPower short-circuits to PassiveProvider without querying the registry,
// and a registry without a match also yields PassiveProvider.
func SelectProvider(priority Priority, registry Registry) ProviderName {
	if priority == PriorityNoPower {
		return PassiveProvider
	}
	if provider, ok := registry.BestProvider(CriteriaFor(priority)); ok && provider != "" {
		return provider
	}
	return PassiveProvider
}
