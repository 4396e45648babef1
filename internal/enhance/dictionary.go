package enhance

// baseDictionary is the built-in domain dictionary: high-frequency English
// plus the rulebook vocabulary that dominates this corpus. The catalog's
// protected terms extend it at construction time.
var baseDictionary = []string{
	// Function words.
	"the", "a", "an", "and", "or", "but", "if", "then", "else", "when",
	"while", "for", "to", "of", "in", "on", "at", "by", "with", "from",
	"into", "onto", "upon", "over", "under", "between", "through", "during",
	"before", "after", "above", "below", "up", "down", "out", "off", "not",
	"no", "nor", "so", "than", "too", "very", "just", "only", "also", "both",
	"each", "few", "more", "most", "other", "some", "such", "any", "all",
	"every", "either", "neither", "one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten", "first", "second", "third",
	"is", "are", "was", "were", "be", "been", "being", "am", "do", "does",
	"did", "done", "have", "has", "had", "will", "would", "shall", "should",
	"may", "might", "must", "can", "could", "it", "its", "this", "that",
	"these", "those", "he", "she", "they", "them", "their", "his", "her",
	"him", "we", "us", "our", "you", "your", "yours", "who", "whom", "whose",
	"which", "what", "where", "why", "how", "there", "here", "as", "because",
	"until", "unless", "although", "however", "therefore", "thus", "once",
	"per", "via", "within", "without", "against", "toward", "towards",
	// Common verbs and nouns.
	"make", "makes", "made", "making", "take", "takes", "taken", "taking",
	"use", "uses", "used", "using", "get", "gets", "got", "give", "gives",
	"given", "find", "finds", "found", "know", "known", "see", "seen",
	"seem", "seems", "come", "comes", "came", "go", "goes", "went", "gone",
	"say", "says", "said", "tell", "told", "ask", "asked", "call", "called",
	"work", "works", "worked", "become", "becomes", "became", "begin",
	"begins", "began", "begun", "move", "moves", "moved", "moving", "turn",
	"turns", "turned", "keep", "keeps", "kept", "hold", "holds", "held",
	"bring", "brings", "brought", "put", "puts", "mean", "means", "meant",
	"let", "lets", "set", "sets", "run", "runs", "ran", "read", "reads",
	"deal", "deals", "dealt", "determine", "determines", "determined",
	"success", "succeed", "succeeds", "fail", "fails", "failed", "failure",
	"reach", "reaches", "reached", "cast", "casts", "consult", "gain",
	"gains", "gained", "lose", "loses", "lost", "begin", "start", "starts",
	"time", "times", "year", "years", "day", "days", "night", "way", "ways",
	"man", "men", "woman", "women", "person", "people", "thing", "things",
	"place", "places", "world", "life", "hand", "hands", "part", "parts",
	"eye", "eyes", "face", "word", "words", "side", "sides", "head", "body",
	"name", "names", "number", "numbers", "point", "points", "water", "fire",
	"air", "earth", "light", "dark", "darkness", "door", "doors", "room",
	"rooms", "wall", "walls", "floor", "stone", "wood", "iron", "steel",
	"gold", "silver", "copper", "new", "old", "great", "good", "high", "low",
	"small", "large", "long", "short", "own", "same", "right", "left",
	"different", "important", "possible", "certain", "several", "single",
	"special", "normal", "common", "rare", "full", "half", "whole", "open",
	"closed", "strong", "weak", "fast", "slow", "heavy", "deep", "near",
	"far", "last", "next", "early", "late", "young", "able", "best", "better",
	"worse", "worst", "much", "many", "less", "least", "enough", "still",
	"even", "well", "back", "again", "away", "always", "never", "often",
	"sometimes", "usually", "rather", "quite", "almost", "already", "yet",
	"perhaps", "instead", "together", "along", "around", "though", "since",
	"another", "anything", "something", "nothing", "everything", "anyone",
	"someone", "everyone", "itself", "himself", "herself", "themselves",
	// Rulebook vocabulary.
	"player", "players", "character", "characters", "game", "games",
	"master", "dungeon", "dungeons", "dragon", "dragons", "level", "levels",
	"class", "classes", "race", "races", "ability", "abilities", "score",
	"scores", "strength", "dexterity", "constitution", "intelligence",
	"wisdom", "charisma", "hit", "hits", "dice", "die", "roll", "rolls",
	"rolled", "rolling", "damage", "attack", "attacks", "attacking",
	"defense", "armor", "shield", "shields", "weapon", "weapons", "sword",
	"swords", "bow", "arrow", "arrows", "spell", "spells", "magic",
	"magical", "wizard", "wizards", "cleric", "clerics", "fighter",
	"fighters", "thief", "thieves", "ranger", "paladin", "druid", "monk",
	"bard", "barbarian", "sorcerer", "warlock", "rogue", "monster",
	"monsters", "creature", "creatures", "undead", "demon", "demons",
	"devil", "devils", "giant", "giants", "goblin", "goblins", "orc",
	"orcs", "troll", "trolls", "elf", "elves", "elven", "dwarf", "dwarves",
	"dwarven", "halfling", "halflings", "gnome", "gnomes", "human",
	"humans", "experience", "treasure", "item", "items", "potion",
	"potions", "scroll", "scrolls", "wand", "wands", "ring", "rings",
	"staff", "staves", "table", "tables", "chart", "charts", "rule",
	"rules", "rulebook", "edition", "chapter", "chapters", "section",
	"sections", "page", "pages", "appendix", "combat", "round", "rounds",
	"turn", "initiative", "movement", "speed", "save", "saves", "saving",
	"throw", "throws", "check", "checks", "modifier", "modifiers", "bonus",
	"bonuses", "penalty", "penalties", "range", "ranged", "melee", "target",
	"targets", "effect", "effects", "duration", "casting", "caster",
	"casters", "component", "components", "material", "divine", "arcane",
	"alignment", "lawful", "chaotic", "neutral", "evil", "adventure",
	"adventures", "adventurer", "adventurers", "quest", "quests", "party",
	"encounter", "encounters", "campaign", "campaigns", "skill", "skills",
	"feat", "feats", "trait", "traits", "proficiency", "proficient",
	"equipment", "armour", "cost", "costs", "weight", "size", "value",
	"action", "actions", "reaction", "reactions", "condition", "conditions",
	"poison", "poisoned", "resistance", "immunity", "vulnerability",
	// Novel vocabulary.
	"chapter", "prologue", "epilogue", "story", "stories", "voice",
	"voices", "whisper", "whispered", "shout", "shouted", "look", "looked",
	"looking", "walk", "walked", "walking", "smile", "smiled", "laugh",
	"laughed", "cry", "cried", "fear", "afraid", "anger", "angry", "love",
	"loved", "hate", "hated", "friend", "friends", "enemy", "enemies",
	"battle", "battles", "war", "wars", "king", "kings", "queen", "queens",
	"lord", "lords", "lady", "ladies", "knight", "knights", "castle",
	"castles", "city", "cities", "town", "towns", "village", "villages",
	"forest", "forests", "mountain", "mountains", "river", "rivers", "sea",
	"road", "roads", "horse", "horses", "ship", "ships", "blood", "death",
	"dead", "alive", "soul", "souls", "spirit", "spirits", "god", "gods",
	"goddess", "temple", "temples", "priest", "priests", "sword", "blade",
	"blades", "cloak", "armor", "helm", "crown", "throne", "realm",
	"realms", "kingdom", "kingdoms", "empire", "ancient", "legend",
	"legends", "prophecy", "destiny", "journey", "shadow", "shadows",
	"silence", "silent", "moment", "moments", "morning", "evening",
	"midnight", "dawn", "dusk", "winter", "summer", "spring", "autumn",
}
