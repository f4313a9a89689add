package resource

import "fmt"

// Kind identifies one of the fixed categories of provisionable entity.
type Kind string

const (
	KeyPair          Kind = "key-pair"
	Network          Kind = "network"
	Gateway          Kind = "gateway"
	PublicSubnet     Kind = "public-subnet"
	PrivateSubnet    Kind = "private-subnet"
	RouteTable       Kind = "route-table"
	RouteAssociation Kind = "route-association"
	SecurityGroup    Kind = "security-group"
	Instance         Kind = "instance"
	Bucket           Kind = "bucket"
)

// All lists the actionable kinds in declaration order. RouteAssociation is
// not listed: its identifier lives alongside the route table's and it is
// detached inside the route table's own teardown.
var All = []Kind{
	KeyPair,
	Network,
	Gateway,
	PublicSubnet,
	PrivateSubnet,
	RouteTable,
	SecurityGroup,
	Instance,
	Bucket,
}

// stateKeys maps each kind to its well-known state file key.
var stateKeys = map[Kind]string{
	KeyPair:          "KEY_PAIR_NAME",
	Network:          "NETWORK_ID",
	Gateway:          "GATEWAY_ID",
	PublicSubnet:     "PUBLIC_SUBNET_ID",
	PrivateSubnet:    "PRIVATE_SUBNET_ID",
	RouteTable:       "ROUTE_TABLE_ID",
	RouteAssociation: "ROUTE_ASSOC_ID",
	SecurityGroup:    "SECURITY_GROUP_ID",
	Instance:         "INSTANCE_ID",
	Bucket:           "BUCKET_NAME",
}

// Companion keys recorded next to a kind's primary identifier.
const (
	KeyInstancePublicIP = "INSTANCE_PUBLIC_IP"
	KeyBucketURL        = "BUCKET_URL"
)

// Key returns the state file key holding this kind's identifier.
func (k Kind) Key() string {
	return stateKeys[k]
}

// Companions returns the extra state keys a kind records beside its
// primary identifier. They are removed together on teardown.
func (k Kind) Companions() []string {
	switch k {
	case RouteTable:
		return []string{RouteAssociation.Key()}
	case Instance:
		return []string{KeyInstancePublicIP}
	case Bucket:
		return []string{KeyBucketURL}
	}
	return nil
}

// Parse converts a user-supplied kind name (for --skip/--only flags).
func Parse(s string) (Kind, error) {
	for _, k := range All {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// FromKey maps a primary state key back to its kind. The second return is
// false for companion keys and keys this tool does not own.
func FromKey(key string) (Kind, bool) {
	for k, v := range stateKeys {
		if v == key {
			return k, true
		}
	}
	return "", false
}
