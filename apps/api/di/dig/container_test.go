package dig_container

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/mentorship/apps/api/echo"
	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
	"github.com/trezcool/mentorship/services/scheduler"
	"github.com/trezcool/mentorship/storage"
)

func TestNew(t *testing.T) {
	t.Setenv("ENV", "TEST")
	c := New()

	err := c.Invoke(func(
		conf *core.Config,
		store *storage.Store,
		userSvc user.ServiceInterface,
		studentSvc student.ServiceInterface,
		surveySvc survey.ServiceInterface,
		server *echoapi.Server,
		digest *scheduler.DigestJob,
	) {
		ctx := context.Background()
		assert.Equal(t, core.StoreMemory, store.Engine)
		assert.NotNil(t, server)
		assert.Equal(t, scheduler.DigestTemplate, digest.Name())

		// the services share the seeded store
		_, err := userSvc.GetByUsernameOrEmail(ctx, "admin")
		assert.NoError(t, err)
		students, err := studentSvc.Query(ctx, nil, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, students)
		surveys, err := surveySvc.Query(ctx, nil, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, surveys)
	})
	require.NoError(t, err)

	var graph bytes.Buffer
	require.NoError(t, Visualize(c, &graph))
	assert.Contains(t, graph.String(), "digraph")
}
