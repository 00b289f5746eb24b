package mcp

import "github.com/mark3labs/mcp-go/mcp"

var keyToolDef = mcp.NewTool("dump_key",
	mcp.WithDescription("Derive the dump path for a URL (or host, port and path) without writing anything. "+
		"Returns the sanitized components and the leaf file name; the file actually written may carry a numeric suffix."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("url", mcp.Description("Absolute http(s) URL. Mutually exclusive with host.")),
	mcp.WithString("host", mcp.Description("Host name when addressing by parts.")),
	mcp.WithNumber("port", mcp.Description("Port when addressing by host (default 80).")),
	mcp.WithString("path", mcp.Description("Raw URL path, query and fragment allowed.")),
	mcp.WithBoolean("is_request", mcp.Description("Describe the request body file instead of the response body.")),
)

var persistToolDef = mcp.NewTool("dump_persist",
	mcp.WithDescription("Write a captured body under the dump root and index it. "+
		"Identical content at the same key is reported as a duplicate; empty bodies write nothing."),
	mcp.WithString("url", mcp.Description("Absolute http(s) URL. Mutually exclusive with host.")),
	mcp.WithString("host", mcp.Description("Host name when addressing by parts.")),
	mcp.WithNumber("port", mcp.Description("Port when addressing by host (default 80).")),
	mcp.WithString("path", mcp.Description("Raw URL path.")),
	mcp.WithBoolean("is_request", mcp.Description("Body is a request body. Dropped unless dump_request_content is enabled.")),
	mcp.WithString("content", mcp.Description("Body as UTF-8 text.")),
	mcp.WithString("content_base64", mcp.Description("Body as standard base64. Mutually exclusive with content.")),
)

var listToolDef = mcp.NewTool("dump_list",
	mcp.WithDescription("List indexed artifacts, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("host", mcp.Description("Only artifacts captured from this host.")),
	mcp.WithString("key_prefix", mcp.Description("Only artifacts whose key starts with this prefix, e.g. example.com/api.")),
	mcp.WithString("outcome", mcp.Description("Only this outcome."), mcp.Enum("written", "duplicate")),
	mcp.WithBoolean("is_request", mcp.Description("Only request bodies (true) or only response bodies (false).")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Items to skip.")),
)

var fetchToolDef = mcp.NewTool("dump_fetch",
	mcp.WithDescription("Fetch one indexed artifact by id, with its payload read back from disk. "+
		"Text payloads come back in content, binary ones in content_base64."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Artifact id.")),
	mcp.WithBoolean("include_content", mcp.Description("Read the payload (default true).")),
)

var statsToolDef = mcp.NewTool("dump_stats",
	mcp.WithDescription("Summarize the index per host: artifacts, written, duplicates, request bodies and bytes."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var purgeToolDef = mcp.NewTool("dump_purge",
	mcp.WithDescription("Permanently delete index records. Files under the dump root are left in place."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("host", mcp.Description("Only records for this host.")),
	mcp.WithNumber("older_than_days", mcp.Description("Only records created more than N days ago (default 0 = all).")),
)
