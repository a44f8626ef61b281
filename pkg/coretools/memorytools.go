package coretools

import (
	"context"
	"fmt"
	"strings"

	"github.com/haoyang/ant/pkg/toolexec"
)

// toolNamespace isolates model-driven writes from any other store users.
const toolNamespace = "agent.tool.memory"

func memoryStoreTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "memory_store",
		Description: "Store important information in memory for later retrieval. Use this to save intermediate " +
			"results, context, or any data that needs to be accessed later during agent execution.",
		Parameters: []toolexec.Parameter{
			{Name: "key", Type: "string", Description: "The key to store the value under", Required: true},
			{Name: "value", Type: "string", Description: "The value to store in memory", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			key, _ := args["key"].(string)
			value, _ := args["value"].(string)
			if err := opts.Memory.Put(toolNamespace, key, value); err != nil {
				return nil, fmt.Errorf("failed to store memory: %w", err)
			}
			return fmt.Sprintf("Successfully stored value under key '%s' in memory", key), nil
		},
	}
}

func memoryRetrieveTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "memory_retrieve",
		Description: "Retrieve previously stored information from memory. Use this to access data that was saved " +
			"earlier during agent execution.",
		Parameters: []toolexec.Parameter{
			{Name: "key", Type: "string", Description: "The key to retrieve the value for", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			key, _ := args["key"].(string)
			value, ok := opts.Memory.Get(toolNamespace, key)
			if !ok {
				return fmt.Sprintf("No value found for key '%s'", key), nil
			}
			return fmt.Sprintf("Retrieved value for key '%s': %s", key, value), nil
		},
	}
}

func memoryListTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name: "memory_list_keys",
		Description: "List all keys currently stored in memory. Use this to see what keys are available for " +
			"retrieval.",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			keys := opts.Memory.Keys(toolNamespace)
			if len(keys) == 0 {
				return "No keys found in memory", nil
			}
			return fmt.Sprintf("Keys in memory: %s", strings.Join(keys, ", ")), nil
		},
	}
}

func memoryDeleteTool(opts Options) toolexec.Definition {
	return toolexec.Definition{
		Name:        "memory_delete",
		Description: "Delete information from memory. Use this to remove data that is no longer needed.",
		Parameters: []toolexec.Parameter{
			{Name: "key", Type: "string", Description: "The key to delete from memory", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			key, _ := args["key"].(string)
			if opts.Memory.Delete(toolNamespace, key) {
				return fmt.Sprintf("Successfully deleted key '%s' from memory", key), nil
			}
			return fmt.Sprintf("Key '%s' not found in memory", key), nil
		},
	}
}
