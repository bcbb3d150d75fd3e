package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaceKey(t *testing.T) {
	dao := NewRedisDefinitionDao(Config{Addrs: []string{"localhost:6379"}, Namespace: "loans"}, nil)
	defer dao.Close()
	require.Equal(t, "loans:WIZARD", dao.key())
	require.Equal(t, "loans:a:b", dao.getNamespaceKey("a", "b"))
}
