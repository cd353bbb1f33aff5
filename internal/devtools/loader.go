package devtools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mrtui/internal/geo"
	"mrtui/internal/remote"

	"gopkg.in/yaml.v3"
)

// LoadFixtures reads every directory under root that holds a
// challenge.yaml, together with its GeoJSON task file. Features are grouped
// into tasks by their "task" property, in file order.
func LoadFixtures(ctx context.Context, root string) (Fixtures, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Fixtures{}, err
	}

	out := Fixtures{User: remote.User{DisplayName: "demo", OSMID: 1}}
	seen := map[string]string{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return Fixtures{}, err
		}
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		specPath := filepath.Join(dir, "challenge.yaml")
		if _, err := os.Stat(specPath); err != nil {
			continue
		}
		spec, err := readChallengeSpec(specPath)
		if err != nil {
			return Fixtures{}, fmt.Errorf("load challenge %s: %w", dir, err)
		}
		spec.Path = dir
		if prev, ok := seen[spec.Slug]; ok {
			return Fixtures{}, fmt.Errorf("duplicate slug %q in %s and %s", spec.Slug, prev, dir)
		}
		seen[spec.Slug] = dir

		tasks, err := readTasks(filepath.Join(dir, spec.TasksFile))
		if err != nil {
			return Fixtures{}, fmt.Errorf("%s: %w", dir, err)
		}
		out.Challenges = append(out.Challenges, ChallengeFixture{Challenge: spec.Challenge(), Tasks: tasks})
	}

	sort.Slice(out.Challenges, func(i, j int) bool {
		return out.Challenges[i].Challenge.Slug < out.Challenges[j].Challenge.Slug
	})
	return out, nil
}

func readChallengeSpec(path string) (ChallengeSpec, error) {
	var spec ChallengeSpec
	b, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return spec, err
	}
	if spec.TasksFile == "" {
		spec.TasksFile = DefaultTasksFile
	}
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}

func readTasks(path string) ([]TaskFixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	features, err := geo.ParseFeatures(b)
	if err != nil {
		return nil, err
	}

	var (
		tasks []TaskFixture
		index = map[string]int{}
	)
	for i, f := range features {
		id := strings.TrimSpace(fmt.Sprint(f.Properties["task"]))
		if f.Properties["task"] == nil || id == "" {
			return nil, fmt.Errorf("features[%d]: task property is required", i)
		}
		n, ok := index[id]
		if !ok {
			n = len(tasks)
			index[id] = n
			tasks = append(tasks, TaskFixture{ID: id})
		}
		t := &tasks[n]
		if s, _ := f.Properties["status"].(string); s != "" && t.Status == "" {
			t.Status = remote.TaskStatus(s)
		}
		if s, _ := f.Properties["instruction"].(string); s != "" && t.Instruction == "" {
			t.Instruction = s
		}
		t.Features = append(t.Features, f)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks in %s", filepath.Base(path))
	}
	return tasks, nil
}
