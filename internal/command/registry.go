package command

import (
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd wrapped in mws. The first middleware is the innermost.
func (r *Registry) Register(cmd Command, mws ...Middleware) {
	cmd = ApplyMiddlewares(cmd, mws...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Name()] = cmd
}

// Get returns the command with the given name
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns every registered command sorted by name
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// SlashDefinitions returns the definitions of every slash command.
func (r *Registry) SlashDefinitions() []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, cmd := range r.All() {
		sp, ok := cmd.(SlashProvider)
		if !ok {
			continue
		}
		def := sp.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
