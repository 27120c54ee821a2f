package sdl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/schemagen"
)

func generate(t *testing.T, source string) *schemagen.Schema {
	t.Helper()
	model, err := datamodel.Parse("test.graphql", source)
	require.NoError(t, err)
	schema, err := schemagen.Generate(context.Background(), model)
	require.NoError(t, err)
	return schema
}

func TestPrint_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name: "blog",
			source: `
type User {
  id: ID! @id
  email: String! @unique
  posts: [Post!]!
  profile: Profile
  createdAt: DateTime! @createdAt
  updatedAt: DateTime! @updatedAt
}

type Post {
  id: ID! @id
  title: String!
  tags: [String!]!
  views: Long
  meta: Json
  author: User!
  status: Status! @default(value: DRAFT)
}

type Profile @embedded {
  bio: String
}

enum Status {
  DRAFT
  PUBLISHED
}
`,
		},
		{
			name: "self relation",
			source: `
type Person {
  id: UUID! @id
  name: String!
  parent: Person @relation(name: "Family")
  children: [Person!]! @relation(name: "Family")
}
`,
		},
		{
			name: "no unique field",
			source: `
type Log {
  message: String
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			printed, err := Print(generate(t, tt.source))
			require.NoError(t, err)
			require.NoError(t, Validate(printed), printed)
		})
	}
}

func TestPrint_Content(t *testing.T) {
	printed, err := Print(generate(t, `
type User {
  id: ID! @id
  name: String
}
`))
	require.NoError(t, err)

	assert.Contains(t, printed, "schema {")
	assert.Contains(t, printed, "type User implements Node {")
	assert.Contains(t, printed, "input UserCreateInput {")
	assert.Contains(t, printed, "scalar Long")
	assert.Contains(t, printed, "enum MutationType {")
	assert.NotContains(t, printed, "scalar String")

	loaded, err := Load(printed)
	require.NoError(t, err)
	require.NotNil(t, loaded.Query)
	users := loaded.Query.Fields.ForName("users")
	require.NotNil(t, users)
	assert.Equal(t, "[User]!", users.Type.String())
	assert.NotNil(t, users.Arguments.ForName("orderBy"))
}

func TestValidate_RejectsBrokenSDL(t *testing.T) {
	assert.Error(t, Validate("type Query { user: Missing }"))
	assert.Error(t, Validate("type {"))
}

func TestDocument_RequiresQuery(t *testing.T) {
	_, err := Document(&schemagen.Schema{})
	assert.Error(t, err)
}
