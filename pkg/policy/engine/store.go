package engine

import (
	"arbiter-hq/arbiter/pkg/policy"
)

// policyStore holds the authoritative policy set together with a
// secondary index from domain name to policy identifiers. The index
// answers "which policies are candidates for this context" in O(1)
// amortized per relevant domain.
//
// Disabled policies stay indexed; they are filtered at evaluation
// time so re-enabling a policy is a flag flip with no index rebuild.
type policyStore struct {
	policies *shardedMap[*policy.Policy]
	domains  *shardedMap[[]string]
}

func newPolicyStore() *policyStore {
	return &policyStore{
		policies: newShardedMap[*policy.Policy](),
		domains:  newShardedMap[[]string](),
	}
}

// load inserts or replaces a policy under its identifier and rebuilds
// its domain-index entry. When a replacement moves the policy to a
// different domain, the identifier is removed from the old bucket.
func (s *policyStore) load(p *policy.Policy) {
	var previousDomain string
	var moved bool
	s.policies.Update(p.ID, func(current *policy.Policy, exists bool) (*policy.Policy, bool) {
		if exists && current.Domain != p.Domain {
			previousDomain = current.Domain
			moved = true
		}
		return p, true
	})

	if moved {
		s.removeFromDomain(previousDomain, p.ID)
	}
	s.domains.Update(p.Domain, func(ids []string, _ bool) ([]string, bool) {
		for _, id := range ids {
			if id == p.ID {
				return ids, true
			}
		}
		return append(ids, p.ID), true
	})
}

// unload removes a policy and its domain-index entry. Unloading an
// unknown identifier is a no-op, reported through the return value.
func (s *policyStore) unload(id string) bool {
	var domain string
	var existed bool
	s.policies.Update(id, func(current *policy.Policy, exists bool) (*policy.Policy, bool) {
		if exists {
			domain = current.Domain
			existed = true
		}
		return nil, false
	})
	if !existed {
		return false
	}

	s.removeFromDomain(domain, id)
	return true
}

func (s *policyStore) removeFromDomain(domain, id string) {
	s.domains.Update(domain, func(ids []string, exists bool) ([]string, bool) {
		if !exists {
			return nil, false
		}
		kept := ids[:0]
		for _, existing := range ids {
			if existing != id {
				kept = append(kept, existing)
			}
		}
		return kept, len(kept) > 0
	})
}

// get returns the policy stored under id.
func (s *policyStore) get(id string) (*policy.Policy, bool) {
	return s.policies.Get(id)
}

// count returns the number of loaded policies.
func (s *policyStore) count() int {
	return s.policies.Len()
}

// candidates returns the identifiers of every policy whose domain
// equals the resource domain, any of the subject's domains, or the
// wildcard domain. Each identifier appears once regardless of how
// many buckets contain it.
func (s *policyStore) candidates(resourceDomain string, subjectDomains map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var out []string

	collect := func(domain string) {
		ids, ok := s.domains.Get(domain)
		if !ok {
			return
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	collect(resourceDomain)
	for domain := range subjectDomains {
		if domain != resourceDomain {
			collect(domain)
		}
	}
	if resourceDomain != policy.DomainWildcard {
		collect(policy.DomainWildcard)
	}
	return out
}
