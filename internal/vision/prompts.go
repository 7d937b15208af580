package vision

import "alliance-observatory/internal/domain"

const preamble = "You are an OCR and data extraction helper for the game Whiteout Survival.\n\n"

const classifyPrompt = preamble + `Identify which screen this screenshot shows:

1. "alliance_members" - alliance member list with player names, power (e.g. 193.2M) and furnace levels (FC1-FC9 or 25-30)
2. "bear_overview" - "Hunt successful!" with "[Hunting Trap 1]" or "[Hunting Trap 2]", "Rallies: XX" and "Total Alliance Damage:". This is the completion screen.
3. "bear_damage" - "Trap 1 Damage Rewards" or "Trap 2 Damage Rewards" with per-player damage rankings. This is the rewards screen.
4. "foundry_signup" - "Legion 1 Combatants" or "Legion 2 Combatants" signup list
5. "foundry_result" - "Personal Arsenal Points" rankings
6. "ac_signup" - Alliance Championship signup with lanes and "Order of Battle"
7. "contribution" - "Contribution Rankings" with "Daily Contribution" or "Weekly Contribution"
8. "alliance_power" - alliance power rankings with alliance names and total power
9. "unknown" - none of the above

Check for "Hunt successful!" and "Rallies:" to identify bear_overview and for "Damage Rewards" to identify bear_damage.

Return ONLY a JSON object: {"type": "alliance_members", "confidence": 0.95}
confidence is between 0.0 (not sure) and 1.0 (very confident). No extra commentary.`

var extractionPrompts = map[domain.ScreenshotType]string{
	domain.ScreenshotAllianceMembers: preamble + `The screenshot shows the "Alliance Members" page. Each member card has the player name, power below it (e.g. "193.2M", "6.6M", "847K"), a furnace level indicator and last online info (ignore it).

Furnace levels: single digits 1-9 carry a red shield and must be returned as "FC1".."FC9". Levels 25-30 have no shield and are returned as plain strings "25".."30". Always return furnace_level as a string.

Count every fully visible card and, per card, extract name, power_millions (number in millions, decimals allowed) and furnace_level. Unreadable fields are null but the card stays in the list.

Return ONLY JSON:
{"card_count": <int>, "players": [{"name": "...", "power_millions": <number|null>, "furnace_level": <string|null>}]}
The length of players MUST equal card_count. No extra commentary.`,

	domain.ScreenshotBearDamage: preamble + `The screenshot shows a "Trap 1 Damage Rewards" or "Trap 2 Damage Rewards" screen with a damage ranking list. Each entry has a rank (or "Unranked"), a player name (often with an alliance tag like [HEI]) and Damage Points (e.g. "6,442,016,308").

Determine the trap id (1 or 2) from the title and extract every visible entry: rank (integer or null when unranked), name (keep tags), damage_points (integer without commas).

Return ONLY JSON:
{"trap_id": <1 or 2>, "players": [{"rank": <int|null>, "name": "...", "damage_points": <int>}]}
No extra commentary.`,

	domain.ScreenshotFoundrySignup: preamble + `The screenshot shows "Legion 1 Combatants" or "Legion 2 Combatants" (foundry signup). The header shows "Join 18/30" and "Troop Power: 34,695". Players are grouped by rank (R5..R2).

Each entry has a name, a foundry power number and a status on the right: "Join" means signed up for this legion, "Legion 2 dispatched" means signed up for the other legion, "No engagements" means not signed up. A "Voted" badge may be present.

Extract legion_number from the title, total_troop_power, max_participants and actual_participants from the header, and for EVERY entry regardless of status: name (preserve special characters), foundry_power (integer), status ("join", "legion_2_dispatched" or "no_engagements") and voted (boolean).

Return ONLY JSON:
{"legion_number": <1 or 2>, "total_troop_power": <int>, "max_participants": <int>, "actual_participants": <int>, "players": [{"name": "...", "foundry_power": <int>, "status": "join|legion_2_dispatched|no_engagements", "voted": <boolean>}]}
No extra commentary.`,

	domain.ScreenshotFoundryResult: preamble + `The screenshot shows "Personal Arsenal Points" (foundry results): rank, player name and arsenal points (e.g. "3,304,232").

Extract every visible entry: rank (integer), name (preserve special characters), score (integer without commas).

Return ONLY JSON:
{"players": [{"rank": <int>, "name": "...", "score": <int>}]}
No extra commentary.`,

	domain.ScreenshotACSignup: preamble + `The screenshot shows the Alliance Championship signup screen. Lane tabs at the top can be ignored. The header shows "Registered: 20/20" and "Power: 70,037". Entries show an order number (ignore it), a player name (e.g. "[HEI]xBes") and "Power: 5,034".

Extract total_registered (the second number of "Registered"), total_power, and for every visible entry: name (preserve tags and symbols) and ac_power (integer without commas).

Return ONLY JSON:
{"total_registered": <int>, "total_power": <int>, "players": [{"name": "...", "ac_power": <int>}]}
No extra commentary.`,

	domain.ScreenshotContribution: preamble + `The screenshot shows "Contribution Rankings" (daily or weekly) with rank, player name and contribution amount (e.g. 83,760).

Extract every visible entry: rank (integer), name (preserve special characters), contribution (integer without commas).

Return ONLY JSON:
{"players": [{"rank": <int>, "name": "...", "contribution": <int>}]}
No extra commentary.`,

	domain.ScreenshotAlliancePower: preamble + `The screenshot shows alliance power rankings. Each entry has a rank, the alliance name with its tag (e.g. "[KIL]ShadowWarriors") and total power (e.g. "19,237,434,928").

Extract every visible entry: rank (integer), alliance_name_with_tag (full string including [TAG]), total_power (integer without commas).

Return ONLY JSON:
{"alliances": [{"rank": <int>, "alliance_name_with_tag": "...", "total_power": <int>}]}
No extra commentary.`,
}

// HasPrompt reports whether the type is extracted through the vision backend.
func HasPrompt(t domain.ScreenshotType) bool {
	_, ok := extractionPrompts[t]
	return ok
}
