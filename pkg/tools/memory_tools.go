package tools

// This file implements the memory tool set that exposes the entity and
// relationship store to agents over MCP. Builders declare the schemas,
// handlers decode the loosely typed arguments and hand the call to the
// store; whatever envelope comes back is returned to the caller as JSON.

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/theapemachine/mongo-memory/pkg/memory"
	"github.com/theapemachine/mongo-memory/pkg/prompts"
)

// RegisterMemoryTools attaches the full memory tool set, bound to the given
// store, to the supplied MCP server instance.
func RegisterMemoryTools(srv *server.MCPServer, store *memory.Store) {
	srv.AddTool(buildCreateEntitiesTool(), handleCreateEntities(store))
	srv.AddTool(buildGetEntityTool(), handleGetEntity(store))
	srv.AddTool(buildUpdateEntityTool(), handleUpdateEntity(store))
	srv.AddTool(buildDeleteEntityTool(), handleDeleteEntity(store))
	srv.AddTool(buildFindEntitiesTool(), handleFindEntities(store))
	srv.AddTool(buildCreateRelationshipTool(), handleCreateRelationship(store))
	srv.AddTool(buildGetRelationshipsTool(), handleGetRelationships(store))
	srv.AddTool(buildDeleteRelationshipTool(), handleDeleteRelationship(store))
	srv.AddTool(buildMemoryStructureTool(), handleMemoryStructure(store))
	srv.AddTool(buildUsageGuideTool(), handleUsageGuide)
}

// ---------------------------------------------------------------------------
// Tool builders (schema only - no execution logic)
// ---------------------------------------------------------------------------

func buildCreateEntitiesTool() mcp.Tool {
	return mcp.NewTool(
		"create_entities",
		mcp.WithDescription("Creates entities in memory. Each entity must have a unique string 'name' field; everything else is free-form."),
		mcp.WithArray("entities",
			mcp.Description("Entity objects to create"),
			mcp.Required(),
		),
	)
}

func buildGetEntityTool() mcp.Tool {
	return mcp.NewTool(
		"get_entity",
		mcp.WithDescription("Retrieves a single entity by its unique name."),
		mcp.WithString("name",
			mcp.Description("Unique name of the entity"),
			mcp.Required(),
		),
	)
}

func buildUpdateEntityTool() mcp.Tool {
	return mcp.NewTool(
		"update_entity",
		mcp.WithDescription("Updates a single entity by name using a MongoDB update document, e.g. {\"$set\": {\"role\": \"lead\"}}."),
		mcp.WithString("name",
			mcp.Description("Unique name of the entity to update"),
			mcp.Required(),
		),
		mcp.WithObject("update",
			mcp.Description("MongoDB update document"),
			mcp.Required(),
		),
		mcp.WithBoolean("upsert",
			mcp.Description("Create the entity when it does not exist"),
		),
	)
}

func buildDeleteEntityTool() mcp.Tool {
	return mcp.NewTool(
		"delete_entity",
		mcp.WithDescription("Deletes a single entity by its unique name."),
		mcp.WithString("name",
			mcp.Description("Unique name of the entity to delete"),
			mcp.Required(),
		),
	)
}

func buildFindEntitiesTool() mcp.Tool {
	return mcp.NewTool(
		"find_entities",
		mcp.WithDescription("Finds entities matching a MongoDB query document. The query must not be empty."),
		mcp.WithObject("query",
			mcp.Description("MongoDB query document, e.g. {\"type\": \"person\"}"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entities to return (default 10)"),
		),
	)
}

func buildCreateRelationshipTool() mcp.Tool {
	return mcp.NewTool(
		"create_relationship",
		mcp.WithDescription("Creates a directed relationship between two existing entities. Type and properties pack into one descriptor: \"works_at:position=developer,department=RnD\", or a bare type like \"knows\"."),
		mcp.WithString("from_entity",
			mcp.Description("Name of the source entity"),
			mcp.Required(),
		),
		mcp.WithString("to_entity",
			mcp.Description("Name of the target entity"),
			mcp.Required(),
		),
		mcp.WithString("relationship_type",
			mcp.Description("Descriptor in the form \"type:key1=value1,key2=value2\""),
			mcp.Required(),
		),
		mcp.WithObject("properties",
			mcp.Description("Additional properties; descriptor-supplied keys win on conflict"),
		),
	)
}

func buildGetRelationshipsTool() mcp.Tool {
	return mcp.NewTool(
		"get_relationships",
		mcp.WithDescription("Returns a page of relationships with total_count and page_info for cursoring."),
		mcp.WithObject("query",
			mcp.Description("Optional MongoDB query document, e.g. {\"type\": \"imports\"}"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size between 1 and 100 (default 10)"),
		),
	)
}

func buildDeleteRelationshipTool() mcp.Tool {
	return mcp.NewTool(
		"delete_relationship",
		mcp.WithDescription("Deletes one relationship between two entities. The descriptor must match the relationship's type and exact property set."),
		mcp.WithString("from_entity",
			mcp.Description("Name of the source entity"),
			mcp.Required(),
		),
		mcp.WithString("to_entity",
			mcp.Description("Name of the target entity"),
			mcp.Required(),
		),
		mcp.WithString("relationship_type",
			mcp.Description("Descriptor in the form \"type:key1=value1,key2=value2\""),
			mcp.Required(),
		),
	)
}

func buildMemoryStructureTool() mcp.Tool {
	return mcp.NewTool(
		"get_memory_structure",
		mcp.WithDescription("Returns a summary of the recognized entity fields and their known values. Call this before building queries."),
	)
}

func buildUsageGuideTool() mcp.Tool {
	return mcp.NewTool(
		"get_usage_guide",
		mcp.WithDescription("RECOMMENDED FIRST STEP: returns a quick start guide with examples for using this memory service."),
	)
}

// ---------------------------------------------------------------------------
// Argument decoding
// ---------------------------------------------------------------------------

// objectArg reads an object argument that may arrive as a map OR as a
// JSON-encoded string, depending on how the caller constructed the argument
// object.
func objectArg(args map[string]any, key string) (bson.M, bool) {
	raw, ok := args[key]

	if !ok || raw == nil {
		return nil, false
	}

	switch v := raw.(type) {
	case map[string]any:
		return bson.M(v), true
	case string:
		var out bson.M

		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, false
		}

		return out, true
	}

	return nil, false
}

// intArg reads a numeric argument that may arrive as float64 (JSON) or as a
// string.
func intArg(args map[string]any, key string, fallback int64) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}

	return fallback
}

// stringMapArg flattens an object argument into string-valued properties.
func stringMapArg(args map[string]any, key string) map[string]string {
	obj, ok := objectArg(args, key)

	if !ok {
		return nil
	}

	out := make(map[string]string, len(obj))

	for k, v := range obj {
		out[k] = fmt.Sprintf("%v", v)
	}

	return out
}

// entityListArg reads the entities argument as a list of objects or as a
// JSON-encoded string.
func entityListArg(args map[string]any, key string) ([]bson.M, error) {
	raw, ok := args[key]

	if !ok {
		return nil, fmt.Errorf("%s parameter is required", key)
	}

	var list []any

	switch v := raw.(type) {
	case []any:
		list = v
	case string:
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %v", key, err)
		}
	default:
		return nil, fmt.Errorf("%s must be a list of objects", key)
	}

	out := make([]bson.M, 0, len(list))

	for _, item := range list {
		obj, ok := item.(map[string]any)

		if !ok {
			return nil, fmt.Errorf("%s entries must be objects", key)
		}

		out = append(out, bson.M(obj))
	}

	return out, nil
}

// envelopeResult marshals a store envelope into a tool result.
func envelopeResult(res memory.Result) *mcp.CallToolResult {
	b, _ := json.Marshal(res)

	return mcp.NewToolResultText(string(b))
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func handleCreateEntities(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entities, err := entityListArg(req.GetArguments(), "entities")

		if err != nil {
			return nil, err
		}

		return envelopeResult(store.CreateEntities(ctx, entities)), nil
	}
}

func handleGetEntity(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, _ := req.GetArguments()["name"].(string)

		if name == "" {
			return nil, fmt.Errorf("name parameter is required")
		}

		return envelopeResult(store.GetEntity(ctx, name)), nil
	}
}

func handleUpdateEntity(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		name, _ := args["name"].(string)

		if name == "" {
			return nil, fmt.Errorf("name parameter is required")
		}

		update, ok := objectArg(args, "update")

		if !ok {
			return nil, fmt.Errorf("update parameter is required and must be an object")
		}

		upsert, _ := args["upsert"].(bool)

		return envelopeResult(store.UpdateEntity(ctx, name, update, upsert)), nil
	}
}

func handleDeleteEntity(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, _ := req.GetArguments()["name"].(string)

		if name == "" {
			return nil, fmt.Errorf("name parameter is required")
		}

		return envelopeResult(store.DeleteEntity(ctx, name)), nil
	}
}

func handleFindEntities(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		query, ok := objectArg(args, "query")

		if !ok {
			return nil, fmt.Errorf("query parameter is required and must be an object")
		}

		limit := intArg(args, "limit", 10)

		return envelopeResult(store.FindEntities(ctx, query, limit)), nil
	}
}

func handleCreateRelationship(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		from, _ := args["from_entity"].(string)
		to, _ := args["to_entity"].(string)
		descriptor, _ := args["relationship_type"].(string)

		if from == "" || to == "" || descriptor == "" {
			return nil, fmt.Errorf("from_entity, to_entity and relationship_type parameters are required")
		}

		properties := stringMapArg(args, "properties")

		return envelopeResult(store.CreateRelationship(ctx, from, to, descriptor, properties)), nil
	}
}

func handleGetRelationships(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		// The query object is optional; nil means all relationships.
		query, _ := objectArg(args, "query")
		limit := intArg(args, "limit", 10)

		return envelopeResult(store.GetRelationships(ctx, query, limit)), nil
	}
}

func handleDeleteRelationship(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		from, _ := args["from_entity"].(string)
		to, _ := args["to_entity"].(string)
		descriptor, _ := args["relationship_type"].(string)

		if from == "" || to == "" || descriptor == "" {
			return nil, fmt.Errorf("from_entity, to_entity and relationship_type parameters are required")
		}

		return envelopeResult(store.DeleteRelationship(ctx, from, to, descriptor)), nil
	}
}

func handleMemoryStructure(store *memory.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return envelopeResult(store.Structure(ctx)), nil
	}
}

func handleUsageGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(prompts.UsageGuide), nil
}
