package usecase

// Scripts evaluated against a single element in the page. Each is a function
// of the element and must leave the rendered DOM as it found it.
const (
	pointerEventsScript = `el => getComputedStyle(el).pointerEvents !== 'none'`

	hitTestScript = `el => {
		const rect = el.getBoundingClientRect();
		const x = rect.left + rect.width / 2;
		const y = rect.top + rect.height / 2;
		return el.ownerDocument.elementFromPoint(x, y) === el;
	}`

	// The inline cursor is restored to its previous value, not cleared.
	cursorAffordanceScript = `el => {
		const styled = getComputedStyle(el).cursor;
		const previous = el.style.cursor;
		el.style.cursor = 'auto';
		const baseline = getComputedStyle(el).cursor;
		el.style.cursor = previous;
		return styled !== baseline;
	}`

	attributesScript = `el => {
		const str = v => (typeof v === 'string' && v !== '') ? v : null;
		const data = {};
		for (const attr of Array.from(el.attributes)) {
			if (attr.name.startsWith('data-')) {
				data[attr.name] = attr.value;
			}
		}
		return {
			id: str(el.id),
			class: str(typeof el.className === 'string' ? el.className : el.getAttribute('class')),
			name: str(el.name),
			role: str(el.getAttribute('role')),
			type: str(el.type),
			'aria-label': str(el.getAttribute('aria-label')),
			'aria-labelledby': str(el.getAttribute('aria-labelledby')),
			href: str(el.href),
			alt: str(el.alt),
			action: el.form ? str(el.form.action) : null,
			dataAttributes: data,
			innerText: str(el.innerText),
			tag: str(el.tagName.toLowerCase()),
		};
	}`
)
