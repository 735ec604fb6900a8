package hub

import (
	"sort"

	"github.com/fleetware/hub/pkg/model"
	"github.com/fleetware/hub/pkg/storage"
)

// EffectivePolicy is the resolved allow/block/require list and restriction
// set for an endpoint.
type EffectivePolicy struct {
	Allowed      []string           `json:"allowed_packages"`
	Blocked      []string           `json:"blocked_packages"`
	Required     []string           `json:"required_packages"`
	Restrictions model.Restrictions `json:"restrictions"`
}

// Resolver computes an endpoint's effective policy: its individual
// entries unioned with every entry of every group it belongs to. Group
// entries strictly add, they never remove individually granted ones. All
// inputs are read through from the store on each resolution; resolution
// is cheap and infrequent relative to telemetry volume, so there is no
// cache to invalidate.
type Resolver struct {
	store     storage.Interface
	namespace string
}

func NewResolver(store storage.Interface, namespace string) *Resolver {
	return &Resolver{
		store:     store,
		namespace: namespace,
	}
}

// policyRank orders policy types by restrictiveness. When the same
// package appears from several sources with different types, the most
// restrictive entry wins: block over require over allow.
func policyRank(t model.PolicyType) int {
	switch t {
	case model.PolicyBlock:
		return 3
	case model.PolicyRequire:
		return 2
	case model.PolicyAllow:
		return 1
	}
	return 0
}

func (r *Resolver) Resolve(endpointID string) (*EffectivePolicy, error) {
	entries, err := r.store.Policies().ListForEndpoint(r.namespace, endpointID)
	if err != nil {
		return nil, err
	}

	restrictions, err := r.store.Policies().RestrictionsForEndpoint(r.namespace, endpointID)
	if err != nil {
		return nil, err
	}

	groups, err := r.store.Groups().ListForEndpoint(r.namespace, endpointID)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		groupEntries, err := r.store.Policies().ListForGroup(g.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, groupEntries...)

		groupRestrictions, err := r.store.Policies().RestrictionsForGroup(g.ID)
		if err != nil {
			return nil, err
		}
		restrictions = restrictions.Merge(groupRestrictions)
	}

	effective := make(map[string]model.PolicyType)
	for _, e := range entries {
		if current, ok := effective[e.PackageName]; !ok || policyRank(e.Type) > policyRank(current) {
			effective[e.PackageName] = e.Type
		}
	}

	policy := &EffectivePolicy{
		Allowed:      make([]string, 0),
		Blocked:      make([]string, 0),
		Required:     make([]string, 0),
		Restrictions: restrictions,
	}
	for pkg, t := range effective {
		switch t {
		case model.PolicyAllow:
			policy.Allowed = append(policy.Allowed, pkg)
		case model.PolicyBlock:
			policy.Blocked = append(policy.Blocked, pkg)
		case model.PolicyRequire:
			policy.Required = append(policy.Required, pkg)
		}
	}

	sort.Strings(policy.Allowed)
	sort.Strings(policy.Blocked)
	sort.Strings(policy.Required)

	return policy, nil
}
