package catalog

// Built-in registry content. Editions are ordered oldest first; keyword
// weights reflect how strongly a term signals the game system.

var defaultCategories = []string{
	"Combat", "Magic", "Character", "Equipment", "Tables", "Rules",
}

var novelCategories = []string{
	"Chapter/Section", "Dialogue", "Description", "Action",
	"Internal Monologue", "Narrative",
}

func builtinGames() []*Game {
	return []*Game{
		{
			ID:       "dnd",
			Name:     "Dungeons & Dragons",
			Editions: []string{"1st", "2nd", "3.5", "4th", "5th"},
			Books: map[string][]string{
				"1st": {"phb", "dmg", "mm", "ua", "dd"},
				"2nd": {"phb", "dmg", "mm", "tom"},
				"3.5": {"phb", "dmg", "mm"},
				"4th": {"phb", "dmg", "mm"},
				"5th": {"phb", "dmg", "mm", "xgte", "tcoe"},
			},
			Keywords: []Keyword{
				{Term: "armor class", Weight: 2},
				{Term: "thac0", Weight: 3},
				{Term: "saving throw", Weight: 2},
				{Term: "hit dice", Weight: 2},
				{Term: "dungeon master", Weight: 3},
				{Term: "experience points", Weight: 1},
				{Term: "alignment", Weight: 1},
				{Term: "spell level", Weight: 2},
				{Term: "beholder", Weight: 2},
				{Term: "mind flayer", Weight: 2},
			},
			Categories: []string{
				"Combat", "Magic", "Character", "Monsters", "Treasure",
				"Tables", "Rules",
			},
			Protected: []string{
				"thac0", "drow", "illithid", "lich", "beholder", "owlbear",
				"tarrasque", "vancian", "gygax", "greyhawk", "faerun",
			},
			Publisher: "TSR / Wizards of the Coast",
		},
		{
			ID:       "pathfinder",
			Name:     "Pathfinder",
			Editions: []string{"1e", "2e"},
			Books: map[string][]string{
				"1e": {"crb", "apg", "bestiary"},
				"2e": {"crb", "apg", "bestiary", "gmg"},
			},
			Keywords: []Keyword{
				{Term: "pathfinder", Weight: 3},
				{Term: "golarion", Weight: 3},
				{Term: "combat maneuver", Weight: 2},
				{Term: "ancestry", Weight: 2},
				{Term: "three actions", Weight: 2},
				{Term: "paizo", Weight: 3},
			},
			Categories: []string{
				"Combat", "Magic", "Character", "Ancestries", "Feats",
				"Tables", "Rules",
			},
			Protected: []string{"golarion", "paizo", "absalom", "tian xia"},
			Publisher: "Paizo",
		},
		{
			ID:       "coc",
			Name:     "Call of Cthulhu",
			Editions: []string{"6th", "7th"},
			Books: map[string][]string{
				"6th": {"core", "companion"},
				"7th": {"keeper", "investigator", "grand_grimoire"},
			},
			Keywords: []Keyword{
				{Term: "sanity", Weight: 3},
				{Term: "mythos", Weight: 3},
				{Term: "investigator", Weight: 2},
				{Term: "keeper", Weight: 2},
				{Term: "cthulhu", Weight: 3},
				{Term: "elder sign", Weight: 2},
			},
			Categories: []string{
				"Combat", "Magic", "Character", "Sanity", "Mythos",
				"Tables", "Rules",
			},
			Protected: []string{
				"cthulhu", "nyarlathotep", "shoggoth", "yog-sothoth",
				"arkham", "miskatonic",
			},
			Publisher: "Chaosium",
		},
		{
			ID:       "vampire",
			Name:     "Vampire: The Masquerade",
			Editions: []string{"2nd", "revised", "v5"},
			Books: map[string][]string{
				"2nd":     {"core"},
				"revised": {"core", "guide_camarilla"},
				"v5":      {"core", "camarilla", "anarch"},
			},
			Keywords: []Keyword{
				{Term: "masquerade", Weight: 3},
				{Term: "camarilla", Weight: 3},
				{Term: "vampire", Weight: 1},
				{Term: "discipline", Weight: 1},
				{Term: "blood pool", Weight: 2},
				{Term: "embrace", Weight: 1},
			},
			Categories: []string{
				"Combat", "Disciplines", "Character", "Clans", "Society",
				"Tables", "Rules",
			},
			Protected: []string{"camarilla", "sabbat", "tremere", "ventrue", "gehenna"},
			Publisher: "White Wolf",
		},
		{
			ID:       "werewolf",
			Name:     "Werewolf: The Apocalypse",
			Editions: []string{"2nd", "revised"},
			Books: map[string][]string{
				"2nd":     {"core"},
				"revised": {"core"},
			},
			Keywords: []Keyword{
				{Term: "garou", Weight: 3},
				{Term: "umbra", Weight: 3},
				{Term: "rage", Weight: 1},
				{Term: "gnosis", Weight: 2},
				{Term: "apocalypse", Weight: 1},
				{Term: "wyrm", Weight: 2},
			},
			Categories: []string{
				"Combat", "Gifts", "Character", "Tribes", "Umbra",
				"Tables", "Rules",
			},
			Protected: []string{"garou", "gnosis", "wyrm", "weaver", "wyld"},
			Publisher: "White Wolf",
		},
	}
}

func builtinSynonyms() []TitleSynonym {
	return []TitleSynonym{
		{Fragment: "player's handbook", Game: "dnd", Edition: "1st", Book: "phb", Title: "Player's Handbook"},
		{Fragment: "players handbook", Game: "dnd", Edition: "1st", Book: "phb", Title: "Player's Handbook"},
		{Fragment: "dungeon master's guide", Game: "dnd", Edition: "1st", Book: "dmg", Title: "Dungeon Master's Guide"},
		{Fragment: "dungeon masters guide", Game: "dnd", Edition: "1st", Book: "dmg", Title: "Dungeon Master's Guide"},
		{Fragment: "monster manual", Game: "dnd", Edition: "1st", Book: "mm", Title: "Monster Manual"},
		{Fragment: "unearthed arcana", Game: "dnd", Edition: "1st", Book: "ua", Title: "Unearthed Arcana"},
		{Fragment: "deities & demigods", Game: "dnd", Edition: "1st", Book: "dd", Title: "Deities & Demigods"},
		{Fragment: "tome of magic", Game: "dnd", Edition: "2nd", Book: "tom", Title: "Tome of Magic"},
		{Fragment: "xanathar's guide to everything", Game: "dnd", Edition: "5th", Book: "xgte", Title: "Xanathar's Guide to Everything"},
		{Fragment: "tasha's cauldron of everything", Game: "dnd", Edition: "5th", Book: "tcoe", Title: "Tasha's Cauldron of Everything"},
		{Fragment: "pathfinder core rulebook", Game: "pathfinder", Edition: "2e", Book: "crb", Title: "Pathfinder Core Rulebook"},
		{Fragment: "advanced player's guide", Game: "pathfinder", Edition: "2e", Book: "apg", Title: "Advanced Player's Guide"},
		{Fragment: "gamemastery guide", Game: "pathfinder", Edition: "2e", Book: "gmg", Title: "Gamemastery Guide"},
		{Fragment: "keeper rulebook", Game: "coc", Edition: "7th", Book: "keeper", Title: "Keeper Rulebook"},
		{Fragment: "investigator handbook", Game: "coc", Edition: "7th", Book: "investigator", Title: "Investigator Handbook"},
		{Fragment: "grand grimoire", Game: "coc", Edition: "7th", Book: "grand_grimoire", Title: "The Grand Grimoire of Cthulhu Mythos Magic"},
		{Fragment: "vampire: the masquerade", Game: "vampire", Edition: "revised", Book: "core", Title: "Vampire: The Masquerade"},
		{Fragment: "guide to the camarilla", Game: "vampire", Edition: "revised", Book: "guide_camarilla", Title: "Guide to the Camarilla"},
		{Fragment: "werewolf: the apocalypse", Game: "werewolf", Edition: "revised", Book: "core", Title: "Werewolf: The Apocalypse"},
	}
}
