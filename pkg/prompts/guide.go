/*
Package prompts holds the static text the memory service hands to agents:
the server instructions and the usage guide returned by get_usage_guide.
*/
package prompts

// Instructions is advertised as the MCP server's instructions string.
const Instructions = `
This is a MongoDB-based memory database for persistent storage of information.

IMPORTANT: Before using any memory operations, you MUST:
1. Call get_usage_guide() to understand proper usage patterns and examples
2. Call get_memory_structure() to understand the current memory organization

This will help you use the memory system effectively and avoid common mistakes.

Available operations: create_entities, get_entity, update_entity, delete_entity,
find_entities, create_relationship, get_relationships, delete_relationship,
get_memory_structure, get_usage_guide.
`

// UsageGuide is the markdown quick start returned by the get_usage_guide tool.
const UsageGuide = `# MongoDB Memory MCP Service Quick Start Guide

## Getting started with memory structure

Before working with memory, get and study its structure:

    structure = get_memory_structure()

- Always check the memory structure before starting work
- Learn the available entity types and field values
- Build queries based on the known structure
- Use correct values for fields

## Key Principles

1. **Always store important information**
   - Record significant user interactions
   - Save discovered facts and relationships
   - Track user preferences and patterns

2. **Check memory before acting**
   - Review past interactions with the user
   - Look for relevant context
   - Verify existing relationships

3. **Maintain memory structure**
   - Use consistent naming patterns
   - Include categorization markers (time/task/topic)
   - Track relationships between entities

4. **Always clarify context**
   - Ask the user how to categorize information unless context is provided
   - Verify the current task/context is still active

## Entities

Every entity needs a unique string name; everything else is free-form:

    create_entities([
      {"name": "project_alpha", "type": "project", "language": "go"},
      {"name": "alice", "type": "person", "role": "developer"}
    ])

Read, update and search by name or filter:

    get_entity("project_alpha")
    update_entity("alice", {"$set": {"role": "lead"}})
    find_entities({"type": "person"}, limit=10)

Queries must not be empty; use get_memory_structure() to learn which fields
and values exist before filtering.

## Relationships

Relationships are directed, typed edges between existing entities. The type
and its properties pack into one descriptor string:

    create_relationship("alice", "project_alpha", "works_on:role=lead,since=2024")
    create_relationship("project_alpha", "project_beta", "imports")

- Both entities must exist before the relationship is created
- At most one relationship of a given type between an ordered pair
- Property segments must be key=value pairs; "works_on:lead" is rejected

Query and delete:

    get_relationships({"type": "works_on"}, limit=10)
    delete_relationship("alice", "project_alpha", "works_on:role=lead,since=2024")

Deleting matches the whole property set exactly: pass the identical
descriptor the relationship was created with.

## Responses

Every operation returns an envelope with a success flag. Errors carry an
error category, a message and usually a details hint:

    {"success": false, "error": "not_found", "message": "entity \"bob\" not found"}

Expect and handle these instead of retrying blindly.
`
