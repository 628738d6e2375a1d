package scraping

// DefaultPages is the curated list of Final Fantasy VI wiki articles
var DefaultPages = []string{
	// Main
	"Final_Fantasy_VI",

	// Characters
	"Terra_Branford",
	"Locke_Cole",
	"Edgar_Roni_Figaro",
	"Sabin_Rene_Figaro",
	"Celes_Chere",
	"Cyan_Garamonde",
	"Shadow_(Final_Fantasy_VI)",
	"Gau",
	"Setzer_Gabbiani",
	"Mog_(Final_Fantasy_VI)",
	"Strago_Magus",
	"Relm_Arrowny",
	"Umaro",
	"Gogo_(Final_Fantasy_VI)",
	"Kefka_Palazzo",

	// Abilities and commands
	"Blitz_(Final_Fantasy_VI)",
	"Lore_(Final_Fantasy_VI)",
	"Sketch",
	"Dance_(Final_Fantasy_VI)",
	"Steal_(Final_Fantasy_VI)",
	"Rage_(Final_Fantasy_VI_command)",
	"Magic_(Final_Fantasy_VI_command)",
	"Tools_(command)",
	"Desperation_Attack",
	"Magitek_(command)",
	"Trance_(Final_Fantasy_VI)",
	"Bushido_(Final_Fantasy_VI)",

	// Espers and magicite
	"Esper_(Final_Fantasy_VI)",
	"Magicite_(Final_Fantasy_VI)",
	"Carbuncle_(Final_Fantasy_VI)",
	"Catoblepas_(Final_Fantasy_VI)",
	"Zona_Seeker_(Final_Fantasy_VI)",
	"Alexander_(Final_Fantasy_VI)",
	"Crusader_(summon)",
	"Ragnarok_(Final_Fantasy_VI_summon)",
	"Fenrir_(Final_Fantasy_VI)",
	"Golem_(Final_Fantasy_VI)",
	"Quetzalli_(Final_Fantasy_VI)",
	"Ramuh_(Final_Fantasy_VI)",
	"Ifrit_(Final_Fantasy_VI)",
	"Shiva_(Final_Fantasy_VI)",
	"Kirin_(Final_Fantasy_VI)",
	"Siren_(Final_Fantasy_VI)",
	"Cait_Sith_(Final_Fantasy_VI)",
	"Bismarck_(Final_Fantasy_VI)",
	"Lakshmi_(Final_Fantasy_VI)",
	"Valigarmanda_(Final_Fantasy_VI)",
	"Phantom_(Final_Fantasy_VI)",
	"Carbunkl_(Final_Fantasy_VI)",
	"Maduin_(Final_Fantasy_VI)",
	"Shoat_(Final_Fantasy_VI)",
	"Unicorn_(Final_Fantasy_VI)",
	"Zone_Seeker_(Final_Fantasy_VI)",
	"Alexandr_(Final_Fantasy_VI)",
	"Crusader_(Final_Fantasy_VI)",
	"Ragnarok_(Final_Fantasy_VI)",
	"Bahamut_(Final_Fantasy_VI)",
	"Odin_(Final_Fantasy_VI)",
	"Raiden_(Final_Fantasy_VI)",
	"Phoenix_(Final_Fantasy_VI)",
	"Leviathan_(Final_Fantasy_VI)",
	"Gilgamesh_(Final_Fantasy_VI)",
	"Gigantuar_(Final_Fantasy_VI)",
	"Diabolos_(Final_Fantasy_VI)",

	// Equipment and items
	"Relic_(Final_Fantasy_VI)",
	"Final_Fantasy_VI_weapons",
	"Final_Fantasy_VI_armor",
	"Final_Fantasy_VI_items",
	"Dragon's_Neck_Coliseum",
	"Auction_House_(Final_Fantasy_VI)",

	// Locations
	"Narshe",
	"Figaro_Castle",
	"South_Figaro",
	"Vector_(Final_Fantasy_VI)",
	"Zozo_(Final_Fantasy_VI)",
	"Jidoor",
	"Thamasa",
	"Mobliz",
	"Kohlingen",
	"Kefka's_Tower",
	"Dragons'_Den",
	"Soul_Shrine",
	"Magitek_Research_Facility_(Final_Fantasy_VI)",
	"Phantom_Train_(Final_Fantasy_VI)",
	"Opera_House_(Final_Fantasy_VI)",
	"Veldt",
	"Doma_Castle_(Final_Fantasy_VI)",
	"Vector",

	// Battle system
	"Active_Time_Battle",
	"Final_Fantasy_VI_battle_system",

	// Story and world
	"Returners",
	"Gestahlian_Empire",
	"World_of_Balance",
	"World_of_Ruin_(Final_Fantasy_VI)",
	"Floating_Continent_(Final_Fantasy_VI)",
	"War_of_the_Magi_(Final_Fantasy_VI)",
	"Warring_Triad_(Final_Fantasy_VI)",
	"Magitek",

	// Enemies
	"Final_Fantasy_VI_enemies",
	"Bestiary_(Final_Fantasy_VI)",
}
