package resource

import "fmt"

// Graph is the fixed dependency graph: each kind maps to the kinds that
// must exist before it can be created.
var Graph = map[Kind][]Kind{
	KeyPair:       nil,
	Network:       nil,
	Gateway:       {Network},
	PublicSubnet:  {Network},
	PrivateSubnet: {Network},
	RouteTable:    {Network, Gateway, PublicSubnet},
	SecurityGroup: {Network},
	Instance:      {KeyPair, SecurityGroup, PublicSubnet},
	Bucket:        nil,
}

// CreationOrder returns the kinds in dependency-respecting creation order.
func CreationOrder() []Kind {
	order, err := topoSort(Graph)
	if err != nil {
		// The graph is a compile-time constant; a cycle here is a bug.
		panic(err)
	}
	return order
}

// TeardownOrder returns the exact reverse of CreationOrder.
func TeardownOrder() []Kind {
	order := CreationOrder()
	rev := make([]Kind, len(order))
	for i, k := range order {
		rev[len(order)-1-i] = k
	}
	return rev
}

// Dependencies returns the kinds that must exist before k.
func Dependencies(k Kind) []Kind {
	return Graph[k]
}

// topoSort performs Kahn's algorithm over the graph. Ready nodes are
// visited in All order so the result is deterministic.
func topoSort(graph map[Kind][]Kind) ([]Kind, error) {
	inDegree := make(map[Kind]int, len(graph))
	dependents := make(map[Kind][]Kind, len(graph))
	for k, deps := range graph {
		inDegree[k] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], k)
		}
	}

	var queue []Kind
	for _, k := range All {
		if _, ok := graph[k]; ok && inDegree[k] == 0 {
			queue = append(queue, k)
		}
	}

	var sorted []Kind
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		sorted = append(sorted, k)

		// Visit dependents in All order to keep the result stable.
		for _, d := range All {
			if !contains(dependents[k], d) {
				continue
			}
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(sorted) != len(graph) {
		return nil, fmt.Errorf("dependency cycle detected in resource graph")
	}
	return sorted, nil
}

func contains(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
