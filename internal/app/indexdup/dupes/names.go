package dupes

import (
	"strings"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
)

// FindDuplicateFileNames groups non-folder objects by lowercased base name.
func FindDuplicateFileNames(objects []types.IndexedObject) []types.DuplicateName {
	return duplicateNames(objects, false)
}

// FindDuplicateFolderNames groups folders by lowercased base name.
func FindDuplicateFolderNames(objects []types.IndexedObject) []types.DuplicateName {
	return duplicateNames(objects, true)
}

func duplicateNames(objects []types.IndexedObject, folders bool) []types.DuplicateName {
	var byName = make(map[string][]types.IndexedObject)
	for _, obj := range objects {
		if obj.IsFolder() != folders {
			continue
		}
		var name = strings.ToLower(obj.Name())
		byName[name] = append(byName[name], obj)
	}

	var groups []types.DuplicateName
	for name, members := range byName {
		if len(members) < 2 {
			continue
		}
		types.SortByPath(members)
		groups = append(groups, types.DuplicateName{Name: name, Members: members})
	}
	types.SortGroups(groups)
	return groups
}
