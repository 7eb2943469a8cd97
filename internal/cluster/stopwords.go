package cluster

// stopwords are excluded from cluster labels: function words plus the
// filler vocabulary of news headlines ("says", "report", "new").
var stopwords = map[string]struct{}{}

func init() {
	words := []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "any",
		"can", "had", "her", "was", "one", "our", "out", "day", "get",
		"has", "him", "his", "how", "man", "new", "now", "old", "see",
		"two", "way", "who", "boy", "did", "its", "let", "put", "say",
		"she", "too", "use", "that", "with", "have", "this", "will",
		"your", "from", "they", "know", "want", "been", "good", "much",
		"some", "time", "very", "when", "come", "here", "just", "like",
		"long", "make", "many", "more", "most", "over", "such", "take",
		"than", "them", "well", "were", "what", "year", "about", "after",
		"again", "could", "every", "first", "found", "great", "house",
		"large", "learn", "never", "other", "place", "plant", "point",
		"right", "small", "sound", "spell", "still", "study", "their",
		"there", "these", "thing", "think", "three", "water", "where",
		"which", "world", "would", "write", "years", "before", "should",
		"through", "between", "because", "against", "without", "during",
		"under", "around", "among", "while", "being", "into", "only",
		"also", "back", "even", "down", "then", "both", "each", "made",
		"said", "says", "than", "upon", "went", "were", "whom", "else",
		"ever", "away", "once", "amid", "per", "via", "off", "own",
		"may", "might", "must", "shall", "does", "done", "has", "had",
		"report", "reports", "news", "today", "week", "month", "monday",
		"tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"latest", "update", "updates", "live", "breaking", "exclusive",
		"analysis", "opinion", "video", "watch", "read", "full", "story",
		"people", "million", "billion", "percent", "according", "official",
		"officials", "government", "country", "state", "city", "group",
		"company", "amid", "since", "despite", "including", "following",
		"another", "several", "others", "really", "things", "getting",
		"going", "called", "based", "using", "known", "seen", "told",
		"asked", "comes", "makes", "takes", "gives", "finds", "shows",
		"wants", "needs", "looks", "keeps", "turns", "puts", "sets",
	}
	for _, w := range words {
		stopwords[w] = struct{}{}
	}
}
